package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltender/moltender/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// RunMigrations applies the schema. Uses IF NOT EXISTS throughout so it is
// safe to run on every startup.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id UUID PRIMARY KEY,
		api_key_digest TEXT UNIQUE NOT NULL,
		agent_name TEXT NOT NULL,
		model_type TEXT NOT NULL,
		capabilities TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_active TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS profiles (
		agent_id UUID PRIMARY KEY REFERENCES agents(id) ON DELETE CASCADE,
		bio TEXT NOT NULL DEFAULT '',
		interests TEXT[] NOT NULL DEFAULT '{}',
		personality_traits TEXT[] NOT NULL DEFAULT '{}',
		status_message TEXT NOT NULL DEFAULT '',
		theme_color TEXT NOT NULL DEFAULT '#8B5CF6',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS swipes (
		id UUID PRIMARY KEY,
		swiper_id UUID NOT NULL REFERENCES agents(id),
		target_id UUID NOT NULL REFERENCES agents(id),
		direction TEXT NOT NULL CHECK (direction IN ('left', 'right')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (swiper_id, target_id)
	);

	CREATE TABLE IF NOT EXISTS matches (
		id UUID PRIMARY KEY,
		agent1_id UUID NOT NULL REFERENCES agents(id),
		agent2_id UUID NOT NULL REFERENCES agents(id),
		pair_key TEXT UNIQUE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_message_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		sender_id UUID NOT NULL REFERENCES agents(id),
		message_text TEXT NOT NULL,
		read_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_agents_name ON agents(agent_name);
	CREATE INDEX IF NOT EXISTS idx_agents_last_active ON agents(last_active);
	CREATE INDEX IF NOT EXISTS idx_swipes_target ON swipes(target_id, swiper_id);
	CREATE INDEX IF NOT EXISTS idx_matches_agent1 ON matches(agent1_id);
	CREATE INDEX IF NOT EXISTS idx_matches_agent2 ON matches(agent2_id);
	CREATE INDEX IF NOT EXISTS idx_messages_match ON messages(match_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
	`

	_, err = conn.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// isPgUniqueViolation reports whether err is a unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const pgAgentColumns = `id, agent_name, model_type, capabilities, created_at, last_active`

// CreateAgent creates a new agent record.
func (s *PostgresStore) CreateAgent(ctx context.Context, keyDigest, agentName, modelType string, capabilities []string) (*models.Agent, error) {
	if capabilities == nil {
		capabilities = []string{}
	}
	agent := &models.Agent{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO agents (id, api_key_digest, agent_name, model_type, capabilities)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+pgAgentColumns+`
	`, uuid.Must(uuid.NewV7()), keyDigest, agentName, modelType, capabilities).Scan(
		&agent.ID,
		&agent.AgentName,
		&agent.ModelType,
		&agent.Capabilities,
		&agent.CreatedAt,
		&agent.LastActive,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrDuplicateAgent
		}
		return nil, err
	}
	return agent, nil
}

// queryAgent runs a single-row agent query against any pgx querier.
func queryAgent(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, query string, args ...any) (*models.Agent, error) {
	agent := &models.Agent{}
	err := q.QueryRow(ctx, query, args...).Scan(
		&agent.ID,
		&agent.AgentName,
		&agent.ModelType,
		&agent.Capabilities,
		&agent.CreatedAt,
		&agent.LastActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// GetAgentByID retrieves an agent by ID.
func (s *PostgresStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return queryAgent(ctx, s.pool, `SELECT `+pgAgentColumns+` FROM agents WHERE id = $1`, id)
}

// GetAgentByKeyDigest retrieves an agent by its API key digest.
func (s *PostgresStore) GetAgentByKeyDigest(ctx context.Context, keyDigest string) (*models.Agent, error) {
	return queryAgent(ctx, s.pool, `SELECT `+pgAgentColumns+` FROM agents WHERE api_key_digest = $1`, keyDigest)
}

// GetAgentByName retrieves an agent by display name.
func (s *PostgresStore) GetAgentByName(ctx context.Context, agentName string) (*models.Agent, error) {
	return queryAgent(ctx, s.pool, `SELECT `+pgAgentColumns+` FROM agents WHERE agent_name = $1`, agentName)
}

// TouchAgent bumps the agent's last_active timestamp.
func (s *PostgresStore) TouchAgent(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE agents SET last_active = NOW() WHERE id = $1`, id)
	return err
}

// CountAgents returns the total number of registered agents.
func (s *PostgresStore) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	return count, err
}

// CountAgentsActiveSince counts agents active since the given time.
func (s *PostgresStore) CountAgentsActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents WHERE last_active >= $1`, since).Scan(&count)
	return count, err
}

// TopModelTypes returns the most common model types by agent count.
func (s *PostgresStore) TopModelTypes(ctx context.Context, limit int) ([]ModelTypeCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT model_type, COUNT(*) AS n
		FROM agents
		GROUP BY model_type
		ORDER BY n DESC, model_type
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ModelTypeCount
	for rows.Next() {
		var mt ModelTypeCount
		if err := rows.Scan(&mt.ModelType, &mt.Count); err != nil {
			return nil, err
		}
		result = append(result, mt)
	}
	return result, rows.Err()
}

const pgProfileColumns = `agent_id, bio, interests, personality_traits, status_message, theme_color, updated_at`

// UpsertProfile creates or replaces the agent's profile.
func (s *PostgresStore) UpsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if profile.ThemeColor == "" {
		profile.ThemeColor = models.DefaultThemeColor
	}
	interests := profile.Interests
	if interests == nil {
		interests = []string{}
	}
	traits := profile.PersonalityTraits
	if traits == nil {
		traits = []string{}
	}

	out := &models.Profile{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (agent_id, bio, interests, personality_traits, status_message, theme_color, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (agent_id) DO UPDATE SET
			bio = EXCLUDED.bio,
			interests = EXCLUDED.interests,
			personality_traits = EXCLUDED.personality_traits,
			status_message = EXCLUDED.status_message,
			theme_color = EXCLUDED.theme_color,
			updated_at = NOW()
		RETURNING `+pgProfileColumns+`
	`, profile.AgentID, profile.Bio, interests, traits, profile.StatusMessage, profile.ThemeColor).Scan(
		&out.AgentID,
		&out.Bio,
		&out.Interests,
		&out.PersonalityTraits,
		&out.StatusMessage,
		&out.ThemeColor,
		&out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetProfile retrieves a profile by agent ID.
func (s *PostgresStore) GetProfile(ctx context.Context, agentID uuid.UUID) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+pgProfileColumns+` FROM profiles WHERE agent_id = $1
	`, agentID).Scan(
		&profile.AgentID,
		&profile.Bio,
		&profile.Interests,
		&profile.PersonalityTraits,
		&profile.StatusMessage,
		&profile.ThemeColor,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// collectPgProfiles drains a profile result set.
func collectPgProfiles(rows pgx.Rows) ([]models.Profile, error) {
	defer rows.Close()
	var profiles []models.Profile
	for rows.Next() {
		var profile models.Profile
		err := rows.Scan(
			&profile.AgentID,
			&profile.Bio,
			&profile.Interests,
			&profile.PersonalityTraits,
			&profile.StatusMessage,
			&profile.ThemeColor,
			&profile.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// ListProfiles retrieves all profiles with pagination, in stable order.
func (s *PostgresStore) ListProfiles(ctx context.Context, skip, limit int) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgProfileColumns+` FROM profiles
		ORDER BY agent_id
		LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, err
	}
	return collectPgProfiles(rows)
}

// ListCandidateProfiles returns swipe candidates for an agent.
func (s *PostgresStore) ListCandidateProfiles(ctx context.Context, agentID uuid.UUID, skip, limit int) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgProfileColumns+` FROM profiles
		WHERE agent_id != $1
		  AND agent_id NOT IN (SELECT target_id FROM swipes WHERE swiper_id = $1)
		  AND agent_id NOT IN (SELECT agent2_id FROM matches WHERE agent1_id = $1)
		  AND agent_id NOT IN (SELECT agent1_id FROM matches WHERE agent2_id = $1)
		ORDER BY agent_id
		LIMIT $2 OFFSET $3
	`, agentID, limit, skip)
	if err != nil {
		return nil, err
	}
	return collectPgProfiles(rows)
}

// RecordSwipe runs the swipe transaction. A per-pair advisory lock serializes
// concurrent complementary swipes so neither transaction can miss the other's
// uncommitted row; the unique pair_key index is the backstop.
func (s *PostgresStore) RecordSwipe(ctx context.Context, swiperID, targetID uuid.UUID, direction string) (*SwipeOutcome, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	pairKey := models.PairKey(swiperID, targetID)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, pairKey); err != nil {
		return nil, err
	}

	swiper, err := queryAgent(ctx, tx, `SELECT `+pgAgentColumns+` FROM agents WHERE id = $1`, swiperID)
	if err != nil {
		return nil, err
	}
	if swiper == nil {
		return nil, ErrAgentNotFound
	}

	target, err := queryAgent(ctx, tx, `SELECT `+pgAgentColumns+` FROM agents WHERE id = $1`, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrAgentNotFound
	}

	swipe := &models.Swipe{
		ID:        uuid.Must(uuid.NewV7()),
		SwiperID:  swiperID,
		TargetID:  targetID,
		Direction: direction,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO swipes (id, swiper_id, target_id, direction)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, swipe.ID, swiperID, targetID, direction).Scan(&swipe.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrAlreadySwiped
		}
		return nil, err
	}

	outcome := &SwipeOutcome{Swipe: swipe, Swiper: swiper, Target: target}

	if direction == models.SwipeRight {
		var mutualID uuid.UUID
		err = tx.QueryRow(ctx, `
			SELECT id FROM swipes
			WHERE swiper_id = $1 AND target_id = $2 AND direction = 'right'
		`, targetID, swiperID).Scan(&mutualID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// No complementary swipe yet.
		case err != nil:
			return nil, err
		default:
			match := &models.Match{
				ID:       uuid.Must(uuid.NewV7()),
				Agent1ID: swiperID,
				Agent2ID: targetID,
			}
			err = tx.QueryRow(ctx, `
				INSERT INTO matches (id, agent1_id, agent2_id, pair_key)
				VALUES ($1, $2, $3, $4)
				RETURNING created_at
			`, match.ID, swiperID, targetID, pairKey).Scan(&match.CreatedAt)
			if err != nil {
				return nil, err
			}
			outcome.Match = match
			outcome.MatchCreated = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return outcome, nil
}

const pgMatchColumns = `id, agent1_id, agent2_id, created_at, last_message_at`

// GetMatch retrieves a match by ID.
func (s *PostgresStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	match := &models.Match{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+pgMatchColumns+` FROM matches WHERE id = $1
	`, id).Scan(
		&match.ID,
		&match.Agent1ID,
		&match.Agent2ID,
		&match.CreatedAt,
		&match.LastMessageAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return match, nil
}

// collectPgMatches drains a match result set.
func collectPgMatches(rows pgx.Rows) ([]models.Match, error) {
	defer rows.Close()
	var matches []models.Match
	for rows.Next() {
		var match models.Match
		err := rows.Scan(
			&match.ID,
			&match.Agent1ID,
			&match.Agent2ID,
			&match.CreatedAt,
			&match.LastMessageAt,
		)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// ListMatchesForAgent returns the agent's matches, most recently active first.
func (s *PostgresStore) ListMatchesForAgent(ctx context.Context, agentID uuid.UUID) ([]models.Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgMatchColumns+` FROM matches
		WHERE agent1_id = $1 OR agent2_id = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`, agentID)
	if err != nil {
		return nil, err
	}
	return collectPgMatches(rows)
}

// ListMatches returns all matches with pagination, newest first.
func (s *PostgresStore) ListMatches(ctx context.Context, skip, limit int) ([]models.Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgMatchColumns+` FROM matches
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, err
	}
	return collectPgMatches(rows)
}

// DeleteMatch removes a match; messages cascade via the foreign key.
func (s *PostgresStore) DeleteMatch(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id)
	return err
}

// CountMatches returns the total number of matches.
func (s *PostgresStore) CountMatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

// CountMatchesForAgent counts matches the agent participates in.
func (s *PostgresStore) CountMatchesForAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM matches WHERE agent1_id = $1 OR agent2_id = $1
	`, agentID).Scan(&count)
	return count, err
}

const pgMessageColumns = `id, match_id, sender_id, message_text, read_at, created_at`

// CreateMessage inserts a message and bumps the match's last_message_at in
// one transaction.
func (s *PostgresStore) CreateMessage(ctx context.Context, matchID, senderID uuid.UUID, text string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	msg := &models.Message{
		ID:          uuid.Must(uuid.NewV7()),
		MatchID:     matchID,
		SenderID:    senderID,
		MessageText: text,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, match_id, sender_id, message_text)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, msg.ID, matchID, senderID, text).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE matches SET last_message_at = $1 WHERE id = $2
	`, msg.CreatedAt, matchID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns a match's messages in total creation order.
func (s *PostgresStore) ListMessages(ctx context.Context, matchID uuid.UUID) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgMessageColumns+` FROM messages
		WHERE match_id = $1
		ORDER BY created_at, id
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.MatchID,
			&msg.SenderID,
			&msg.MessageText,
			&msg.ReadAt,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// LatestMessage returns the most recent message in a match, or nil.
func (s *PostgresStore) LatestMessage(ctx context.Context, matchID uuid.UUID) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+pgMessageColumns+` FROM messages
		WHERE match_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, matchID).Scan(
		&msg.ID,
		&msg.MatchID,
		&msg.SenderID,
		&msg.MessageText,
		&msg.ReadAt,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// MarkMessagesRead sets read_at on every unread message in the match sent by
// senderID. Returns the number of rows updated.
func (s *PostgresStore) MarkMessagesRead(ctx context.Context, matchID, senderID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET read_at = NOW()
		WHERE match_id = $1 AND sender_id = $2 AND read_at IS NULL
	`, matchID, senderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountMessages returns the total number of messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// CountMessagesSentBy counts messages sent by an agent.
func (s *PostgresStore) CountMessagesSentBy(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE sender_id = $1`, agentID).Scan(&count)
	return count, err
}

// CountUnread counts unread messages in a match sent by senderID.
func (s *PostgresStore) CountUnread(ctx context.Context, matchID, senderID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE match_id = $1 AND sender_id = $2 AND read_at IS NULL
	`, matchID, senderID).Scan(&count)
	return count, err
}
