package quest

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	apperrors "github.com/kythia/questapi/internal/errors"
	"github.com/kythia/questapi/internal/storage/postgres"
)

const questColumns = `
	id, config_version, starts_at, expires_at, application_id, application_name,
	application_link, share_policy, preview, primary_color, secondary_color,
	quest_name, game_title, game_publisher, cta_link, cta_button_label,
	task_join_operator, reward_assignment_method, rewards_expire_at,
	created_at, updated_at`

// Repository is the PostgreSQL implementation of Store.
type Repository struct {
	db *postgres.Client
	q  postgres.Querier
	tx bool
}

func NewRepository(db *postgres.Client) *Repository {
	return &Repository{db: db, q: db.DB}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx Store) error) error {
	if r.tx {
		return fn(r)
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&Repository{db: r.db, q: tx, tx: true})
	})
}

func (r *Repository) UpsertQuest(ctx context.Context, q *Quest) error {
	query := `
		INSERT INTO quests (
			id, config_version, starts_at, expires_at, application_id, application_name,
			application_link, share_policy, preview, primary_color, secondary_color,
			quest_name, game_title, game_publisher, cta_link, cta_button_label,
			task_join_operator, reward_assignment_method, rewards_expire_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			config_version = EXCLUDED.config_version,
			starts_at = EXCLUDED.starts_at,
			expires_at = EXCLUDED.expires_at,
			application_id = EXCLUDED.application_id,
			application_name = EXCLUDED.application_name,
			application_link = EXCLUDED.application_link,
			share_policy = EXCLUDED.share_policy,
			preview = EXCLUDED.preview,
			primary_color = EXCLUDED.primary_color,
			secondary_color = EXCLUDED.secondary_color,
			quest_name = EXCLUDED.quest_name,
			game_title = EXCLUDED.game_title,
			game_publisher = EXCLUDED.game_publisher,
			cta_link = EXCLUDED.cta_link,
			cta_button_label = EXCLUDED.cta_button_label,
			task_join_operator = EXCLUDED.task_join_operator,
			reward_assignment_method = EXCLUDED.reward_assignment_method,
			rewards_expire_at = EXCLUDED.rewards_expire_at,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.q.QueryRowContext(ctx, query,
		q.ID, q.ConfigVersion, q.StartsAt, q.ExpiresAt, q.ApplicationID, q.ApplicationName,
		q.ApplicationLink, q.SharePolicy, q.Preview, q.PrimaryColor, q.SecondaryColor,
		q.QuestName, q.GameTitle, q.GamePublisher, q.CTALink, q.CTAButtonLabel,
		q.TaskJoinOperator, q.RewardAssignmentMethod, q.RewardsExpireAt,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return apperrors.ErrStorage("upsert quest", err)
	}
	return nil
}

func (r *Repository) UpsertAssets(ctx context.Context, questID string, a *Assets) error {
	if a == nil {
		if _, err := r.q.ExecContext(ctx, `DELETE FROM quest_assets WHERE quest_id = $1`, questID); err != nil {
			return apperrors.ErrStorage("delete quest assets", err)
		}
		return nil
	}
	query := `
		INSERT INTO quest_assets (
			quest_id, hero, hero_video, quest_bar_hero, quest_bar_hero_video,
			game_tile, logotype, game_tile_light, game_tile_dark,
			logotype_light, logotype_dark
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (quest_id) DO UPDATE SET
			hero = EXCLUDED.hero,
			hero_video = EXCLUDED.hero_video,
			quest_bar_hero = EXCLUDED.quest_bar_hero,
			quest_bar_hero_video = EXCLUDED.quest_bar_hero_video,
			game_tile = EXCLUDED.game_tile,
			logotype = EXCLUDED.logotype,
			game_tile_light = EXCLUDED.game_tile_light,
			game_tile_dark = EXCLUDED.game_tile_dark,
			logotype_light = EXCLUDED.logotype_light,
			logotype_dark = EXCLUDED.logotype_dark`

	_, err := r.q.ExecContext(ctx, query,
		questID, a.Hero, a.HeroVideo, a.QuestBarHero, a.QuestBarHeroVideo,
		a.GameTile, a.Logotype, a.GameTileLight, a.GameTileDark,
		a.LogotypeLight, a.LogotypeDark,
	)
	if err != nil {
		return apperrors.ErrStorage("upsert quest assets", err)
	}
	return nil
}

func (r *Repository) ReplaceTasks(ctx context.Context, questID string, tasks []Task) error {
	return r.InTx(ctx, func(tx Store) error {
		txr := tx.(*Repository)
		if _, err := txr.q.ExecContext(ctx, `DELETE FROM quest_tasks WHERE quest_id = $1`, questID); err != nil {
			return apperrors.ErrStorage("delete quest tasks", err)
		}
		for _, t := range tasks {
			_, err := txr.q.ExecContext(ctx, `
				INSERT INTO quest_tasks (quest_id, task_type, target, applications, external_ids)
				VALUES ($1, $2, $3, $4, $5)`,
				questID, t.TaskType, t.Target, payload(t.Applications), payload(t.ExternalIDs),
			)
			if err != nil {
				return apperrors.ErrStorage("insert quest task", err)
			}
		}
		return nil
	})
}

func (r *Repository) ReplaceRewards(ctx context.Context, questID string, rewards []Reward) error {
	return r.InTx(ctx, func(tx Store) error {
		txr := tx.(*Repository)
		if _, err := txr.q.ExecContext(ctx, `DELETE FROM quest_rewards WHERE quest_id = $1`, questID); err != nil {
			return apperrors.ErrStorage("delete quest rewards", err)
		}
		for _, rw := range rewards {
			_, err := txr.q.ExecContext(ctx, `
				INSERT INTO quest_rewards (
					quest_id, reward_type, sku_id, reward_name, reward_name_with_article,
					orb_quantity, redemption_instructions, platform
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				questID, rw.RewardType, rw.SKUID, rw.Name, rw.NameWithArticle,
				rw.OrbQuantity, payload(rw.RedemptionInstructions), rw.Platform,
			)
			if err != nil {
				return apperrors.ErrStorage("insert quest reward", err)
			}
		}
		return nil
	})
}

func (r *Repository) ReplaceFeatures(ctx context.Context, questID string, featureIDs []int) error {
	return r.InTx(ctx, func(tx Store) error {
		txr := tx.(*Repository)
		if _, err := txr.q.ExecContext(ctx, `DELETE FROM quest_features WHERE quest_id = $1`, questID); err != nil {
			return apperrors.ErrStorage("delete quest features", err)
		}
		if len(featureIDs) == 0 {
			return nil
		}
		ids := make([]int64, len(featureIDs))
		for i, id := range featureIDs {
			ids[i] = int64(id)
		}
		// WITH ORDINALITY keeps the provider's ordering in the serial ids.
		_, err := txr.q.ExecContext(ctx, `
			INSERT INTO quest_features (quest_id, feature_id)
			SELECT $1, f.feature_id
			FROM UNNEST($2::INTEGER[]) WITH ORDINALITY AS f(feature_id, ord)
			ORDER BY f.ord`,
			questID, pq.Array(ids),
		)
		if err != nil {
			return apperrors.ErrStorage("insert quest features", err)
		}
		return nil
	})
}

func (r *Repository) ListKnownIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM quests`)
	if err != nil {
		return nil, apperrors.ErrStorage("list quest ids", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.ErrStorage("scan quest id", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ErrStorage("list quest ids", err)
	}
	return ids, nil
}

func (r *Repository) GetCompleteQuest(ctx context.Context, id string) (*CompleteQuest, error) {
	q, err := scanQuest(r.q.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrQuestNotFound(id)
	}
	if err != nil {
		return nil, apperrors.ErrStorage("get quest", err)
	}

	complete := []*CompleteQuest{{Quest: *q}}
	if err := r.hydrate(ctx, complete); err != nil {
		return nil, err
	}
	return complete[0], nil
}

func (r *Repository) ListRecentCompleteQuests(ctx context.Context, ageDays int, now time.Time) ([]*CompleteQuest, error) {
	query := `SELECT ` + questColumns + `
		FROM quests
		WHERE expires_at >= $1
		ORDER BY starts_at DESC, id ASC`

	rows, err := r.q.QueryContext(ctx, query, RecentCutoff(ageDays, now))
	if err != nil {
		return nil, apperrors.ErrStorage("list recent quests", err)
	}
	defer func() { _ = rows.Close() }()

	var complete []*CompleteQuest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, apperrors.ErrStorage("scan quest", err)
		}
		complete = append(complete, &CompleteQuest{Quest: *q})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ErrStorage("list recent quests", err)
	}

	if err := r.hydrate(ctx, complete); err != nil {
		return nil, err
	}
	return complete, nil
}

// hydrate loads every child collection for the given quests with one query
// per child table.
func (r *Repository) hydrate(ctx context.Context, quests []*CompleteQuest) error {
	if len(quests) == 0 {
		return nil
	}
	byID := make(map[string]*CompleteQuest, len(quests))
	ids := make([]string, 0, len(quests))
	for _, cq := range quests {
		cq.Tasks = []Task{}
		cq.Rewards = []Reward{}
		cq.Features = []Feature{}
		byID[cq.Quest.ID] = cq
		ids = append(ids, cq.Quest.ID)
	}

	if err := r.loadAssets(ctx, ids, byID); err != nil {
		return err
	}
	if err := r.loadTasks(ctx, ids, byID); err != nil {
		return err
	}
	if err := r.loadRewards(ctx, ids, byID); err != nil {
		return err
	}
	return r.loadFeatures(ctx, ids, byID)
}

func (r *Repository) loadAssets(ctx context.Context, ids []string, byID map[string]*CompleteQuest) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT quest_id, hero, hero_video, quest_bar_hero, quest_bar_hero_video,
		       game_tile, logotype, game_tile_light, game_tile_dark,
		       logotype_light, logotype_dark
		FROM quest_assets
		WHERE quest_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return apperrors.ErrStorage("load quest assets", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var questID string
		a := &Assets{}
		if err := rows.Scan(
			&questID, &a.Hero, &a.HeroVideo, &a.QuestBarHero, &a.QuestBarHeroVideo,
			&a.GameTile, &a.Logotype, &a.GameTileLight, &a.GameTileDark,
			&a.LogotypeLight, &a.LogotypeDark,
		); err != nil {
			return apperrors.ErrStorage("scan quest assets", err)
		}
		if cq, ok := byID[questID]; ok {
			cq.Assets = a
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.ErrStorage("load quest assets", err)
	}
	return nil
}

func (r *Repository) loadTasks(ctx context.Context, ids []string, byID map[string]*CompleteQuest) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, quest_id, task_type, target, applications, external_ids
		FROM quest_tasks
		WHERE quest_id = ANY($1)
		ORDER BY id ASC`, pq.Array(ids))
	if err != nil {
		return apperrors.ErrStorage("load quest tasks", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var t Task
		var applications, externalIDs []byte
		if err := rows.Scan(&t.ID, &t.QuestID, &t.TaskType, &t.Target, &applications, &externalIDs); err != nil {
			return apperrors.ErrStorage("scan quest task", err)
		}
		t.Applications = jsonColumn(applications)
		t.ExternalIDs = jsonColumn(externalIDs)
		if cq, ok := byID[t.QuestID]; ok {
			cq.Tasks = append(cq.Tasks, t)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.ErrStorage("load quest tasks", err)
	}
	return nil
}

func (r *Repository) loadRewards(ctx context.Context, ids []string, byID map[string]*CompleteQuest) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, quest_id, reward_type, sku_id, reward_name, reward_name_with_article,
		       orb_quantity, redemption_instructions, platform
		FROM quest_rewards
		WHERE quest_id = ANY($1)
		ORDER BY id ASC`, pq.Array(ids))
	if err != nil {
		return apperrors.ErrStorage("load quest rewards", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rw Reward
		var instructions []byte
		if err := rows.Scan(
			&rw.ID, &rw.QuestID, &rw.RewardType, &rw.SKUID, &rw.Name, &rw.NameWithArticle,
			&rw.OrbQuantity, &instructions, &rw.Platform,
		); err != nil {
			return apperrors.ErrStorage("scan quest reward", err)
		}
		rw.RedemptionInstructions = jsonColumn(instructions)
		if cq, ok := byID[rw.QuestID]; ok {
			cq.Rewards = append(cq.Rewards, rw)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.ErrStorage("load quest rewards", err)
	}
	return nil
}

func (r *Repository) loadFeatures(ctx context.Context, ids []string, byID map[string]*CompleteQuest) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, quest_id, feature_id
		FROM quest_features
		WHERE quest_id = ANY($1)
		ORDER BY id ASC`, pq.Array(ids))
	if err != nil {
		return apperrors.ErrStorage("load quest features", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.QuestID, &f.FeatureID); err != nil {
			return apperrors.ErrStorage("scan quest feature", err)
		}
		if cq, ok := byID[f.QuestID]; ok {
			cq.Features = append(cq.Features, f)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.ErrStorage("load quest features", err)
	}
	return nil
}

func (r *Repository) GetCachedDocument(ctx context.Context, key string) (*CachedDocument, error) {
	doc := &CachedDocument{}
	var data []byte
	err := r.q.QueryRowContext(ctx,
		`SELECT id, data, updated_at FROM cache_store WHERE id = $1`, key,
	).Scan(&doc.Key, &data, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ErrStorage("get cache", err)
	}
	doc.Data = jsonColumn(data)
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return doc, nil
}

func (r *Repository) PutCachedDocument(ctx context.Context, key string, data []byte, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO cache_store (id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		key, string(data), at.UTC(),
	)
	if err != nil {
		return apperrors.ErrStorage("upsert cache", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuest(row rowScanner) (*Quest, error) {
	q := &Quest{}
	err := row.Scan(
		&q.ID, &q.ConfigVersion, &q.StartsAt, &q.ExpiresAt, &q.ApplicationID, &q.ApplicationName,
		&q.ApplicationLink, &q.SharePolicy, &q.Preview, &q.PrimaryColor, &q.SecondaryColor,
		&q.QuestName, &q.GameTitle, &q.GamePublisher, &q.CTALink, &q.CTAButtonLabel,
		&q.TaskJoinOperator, &q.RewardAssignmentMethod, &q.RewardsExpireAt,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.StartsAt = q.StartsAt.UTC()
	q.ExpiresAt = q.ExpiresAt.UTC()
	if q.RewardsExpireAt != nil {
		utc := q.RewardsExpireAt.UTC()
		q.RewardsExpireAt = &utc
	}
	return q, nil
}

// jsonColumn converts a scanned JSONB column; SQL NULL stays nil.
func jsonColumn(b []byte) datatypes.JSON {
	if b == nil {
		return nil
	}
	return datatypes.JSON(b)
}
