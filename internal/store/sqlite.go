package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/moltender/moltender/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/moltender.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/moltender.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// _txlock=immediate makes every transaction take the write lock up
	// front, so the read-then-write inside RecordSwipe is serialized.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		api_key_digest TEXT UNIQUE NOT NULL,
		agent_name TEXT NOT NULL,
		model_type TEXT NOT NULL,
		capabilities TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		last_active DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		agent_id TEXT PRIMARY KEY REFERENCES agents(id) ON DELETE CASCADE,
		bio TEXT NOT NULL DEFAULT '',
		interests TEXT NOT NULL DEFAULT '[]',
		personality_traits TEXT NOT NULL DEFAULT '[]',
		status_message TEXT NOT NULL DEFAULT '',
		theme_color TEXT NOT NULL DEFAULT '#8B5CF6',
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS swipes (
		id TEXT PRIMARY KEY,
		swiper_id TEXT NOT NULL REFERENCES agents(id),
		target_id TEXT NOT NULL REFERENCES agents(id),
		direction TEXT NOT NULL CHECK (direction IN ('left', 'right')),
		created_at DATETIME NOT NULL,
		UNIQUE (swiper_id, target_id)
	);

	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		agent1_id TEXT NOT NULL REFERENCES agents(id),
		agent2_id TEXT NOT NULL REFERENCES agents(id),
		pair_key TEXT UNIQUE NOT NULL,
		created_at DATETIME NOT NULL,
		last_message_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		sender_id TEXT NOT NULL REFERENCES agents(id),
		message_text TEXT NOT NULL,
		read_at DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_agents_name ON agents(agent_name);
	CREATE INDEX IF NOT EXISTS idx_agents_last_active ON agents(last_active);
	CREATE INDEX IF NOT EXISTS idx_swipes_target ON swipes(target_id, swiper_id);
	CREATE INDEX IF NOT EXISTS idx_matches_agent1 ON matches(agent1_id);
	CREATE INDEX IF NOT EXISTS idx_matches_agent2 ON matches(agent2_id);
	CREATE INDEX IF NOT EXISTS idx_messages_match ON messages(match_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// encodeTags serializes a tag list to its JSON column representation.
func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	return string(data)
}

// decodeTags parses a JSON tag column, tolerating legacy empty values.
func decodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// CreateAgent creates a new agent record.
func (s *SQLiteStore) CreateAgent(ctx context.Context, keyDigest, agentName, modelType string, capabilities []string) (*models.Agent, error) {
	agent := &models.Agent{
		ID:           uuid.Must(uuid.NewV7()),
		AgentName:    agentName,
		ModelType:    modelType,
		Capabilities: capabilities,
		CreatedAt:    time.Now().UTC(),
		LastActive:   time.Now().UTC(),
	}
	if agent.Capabilities == nil {
		agent.Capabilities = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, api_key_digest, agent_name, model_type, capabilities, created_at, last_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, agent.ID.String(), keyDigest, agentName, modelType, encodeTags(capabilities), agent.CreatedAt, agent.LastActive)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAgent
		}
		return nil, err
	}

	return agent, nil
}

// scanAgent scans one agent row.
func scanAgent(row interface {
	Scan(dest ...interface{}) error
}) (*models.Agent, error) {
	agent := &models.Agent{}
	var idStr, capsRaw string
	err := row.Scan(&idStr, &agent.AgentName, &agent.ModelType, &capsRaw, &agent.CreatedAt, &agent.LastActive)
	if err != nil {
		return nil, err
	}
	agent.ID = uuid.MustParse(idStr)
	agent.Capabilities = decodeTags(capsRaw)
	return agent, nil
}

const agentColumns = `id, agent_name, model_type, capabilities, created_at, last_active`

// GetAgentByID retrieves an agent by ID.
func (s *SQLiteStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	agent, err := scanAgent(s.db.QueryRowContext(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE id = ?
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// GetAgentByKeyDigest retrieves an agent by its API key digest.
func (s *SQLiteStore) GetAgentByKeyDigest(ctx context.Context, keyDigest string) (*models.Agent, error) {
	agent, err := scanAgent(s.db.QueryRowContext(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE api_key_digest = ?
	`, keyDigest))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// GetAgentByName retrieves an agent by display name.
func (s *SQLiteStore) GetAgentByName(ctx context.Context, agentName string) (*models.Agent, error) {
	agent, err := scanAgent(s.db.QueryRowContext(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE agent_name = ?
	`, agentName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// TouchAgent bumps the agent's last_active timestamp.
func (s *SQLiteStore) TouchAgent(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE agents SET last_active = ? WHERE id = ?
	`, time.Now().UTC(), id.String())
	return err
}

// CountAgents returns the total number of registered agents.
func (s *SQLiteStore) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	return count, err
}

// CountAgentsActiveSince counts agents active since the given time.
func (s *SQLiteStore) CountAgentsActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM agents WHERE last_active >= ?
	`, since).Scan(&count)
	return count, err
}

// TopModelTypes returns the most common model types by agent count.
func (s *SQLiteStore) TopModelTypes(ctx context.Context, limit int) ([]ModelTypeCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_type, COUNT(*) AS n
		FROM agents
		GROUP BY model_type
		ORDER BY n DESC, model_type
		LIMIT ?
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

// UpsertProfile creates or replaces the agent's profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if profile.ThemeColor == "" {
		profile.ThemeColor = models.DefaultThemeColor
	}
	profile.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (agent_id, bio, interests, personality_traits, status_message, theme_color, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (agent_id) DO UPDATE SET
			bio = excluded.bio,
			interests = excluded.interests,
			personality_traits = excluded.personality_traits,
			status_message = excluded.status_message,
			theme_color = excluded.theme_color,
			updated_at = excluded.updated_at
	`, profile.AgentID.String(), profile.Bio, encodeTags(profile.Interests),
		encodeTags(profile.PersonalityTraits), profile.StatusMessage, profile.ThemeColor, profile.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, profile.AgentID)
}

// scanProfile scans one profile row.
func scanProfile(row interface {
	Scan(dest ...interface{}) error
}) (*models.Profile, error) {
	profile := &models.Profile{}
	var idStr, interestsRaw, traitsRaw string
	err := row.Scan(&idStr, &profile.Bio, &interestsRaw, &traitsRaw,
		&profile.StatusMessage, &profile.ThemeColor, &profile.UpdatedAt)
	if err != nil {
		return nil, err
	}
	profile.AgentID = uuid.MustParse(idStr)
	profile.Interests = decodeTags(interestsRaw)
	profile.PersonalityTraits = decodeTags(traitsRaw)
	return profile, nil
}

const profileColumns = `agent_id, bio, interests, personality_traits, status_message, theme_color, updated_at`

// GetProfile retrieves a profile by agent ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, agentID uuid.UUID) (*models.Profile, error) {
	profile, err := scanProfile(s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE agent_id = ?
	`, agentID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// collectProfiles drains a profile result set.
func collectProfiles(rows *sql.Rows) ([]models.Profile, error) {
	var profiles []models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

// ListProfiles retrieves all profiles with pagination, in stable order.
func (s *SQLiteStore) ListProfiles(ctx context.Context, skip, limit int) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles
		ORDER BY agent_id
		LIMIT ? OFFSET ?
	`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListCandidateProfiles returns swipe candidates for an agent: everyone
// except the agent itself, agents it has already swiped on, and agents it
// is already matched with.
func (s *SQLiteStore) ListCandidateProfiles(ctx context.Context, agentID uuid.UUID, skip, limit int) ([]models.Profile, error) {
	id := agentID.String()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE agent_id != ?
		  AND agent_id NOT IN (SELECT target_id FROM swipes WHERE swiper_id = ?)
		  AND agent_id NOT IN (SELECT agent2_id FROM matches WHERE agent1_id = ?)
		  AND agent_id NOT IN (SELECT agent1_id FROM matches WHERE agent2_id = ?)
		ORDER BY agent_id
		LIMIT ? OFFSET ?
	`, id, id, id, id, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// RecordSwipe runs the swipe transaction: insert the swipe, look for the
// complementary right-swipe, and create the match when both sides agree.
// The connection opens transactions with an immediate write lock, so two
// simultaneous complementary swipes cannot both miss each other's row.
func (s *SQLiteStore) RecordSwipe(ctx context.Context, swiperID, targetID uuid.UUID, direction string) (*SwipeOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	swiper, err := scanAgent(tx.QueryRowContext(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE id = ?
	`, swiperID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	target, err := scanAgent(tx.QueryRowContext(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE id = ?
	`, targetID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	swipe := &models.Swipe{
		ID:        uuid.Must(uuid.NewV7()),
		SwiperID:  swiperID,
		TargetID:  targetID,
		Direction: direction,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO swipes (id, swiper_id, target_id, direction, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, swipe.ID.String(), swiperID.String(), targetID.String(), direction, swipe.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadySwiped
		}
		return nil, err
	}

	outcome := &SwipeOutcome{Swipe: swipe, Swiper: swiper, Target: target}

	if direction == models.SwipeRight {
		var mutualID string
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM swipes
			WHERE swiper_id = ? AND target_id = ? AND direction = 'right'
		`, targetID.String(), swiperID.String()).Scan(&mutualID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// No complementary swipe yet.
		case err != nil:
			return nil, err
		default:
			match := &models.Match{
				ID:        uuid.Must(uuid.NewV7()),
				Agent1ID:  swiperID,
				Agent2ID:  targetID,
				CreatedAt: time.Now().UTC(),
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO matches (id, agent1_id, agent2_id, pair_key, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, match.ID.String(), swiperID.String(), targetID.String(),
				models.PairKey(swiperID, targetID), match.CreatedAt)
			if err != nil {
				if !isUniqueViolation(err) {
					return nil, err
				}
				// The pair is already matched; keep the swipe, reuse the row.
				match, err = s.getMatchByPairTx(ctx, tx, swiperID, targetID)
				if err != nil {
					return nil, err
				}
			}
			outcome.Match = match
			outcome.MatchCreated = true
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return outcome, nil
}

// getMatchByPairTx fetches the match for an unordered pair inside a transaction.
func (s *SQLiteStore) getMatchByPairTx(ctx context.Context, tx *sql.Tx, a, b uuid.UUID) (*models.Match, error) {
	return scanMatch(tx.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE pair_key = ?
	`, models.PairKey(a, b)))
}

// scanMatch scans one match row.
func scanMatch(row interface {
	Scan(dest ...interface{}) error
}) (*models.Match, error) {
	match := &models.Match{}
	var idStr, a1Str, a2Str string
	err := row.Scan(&idStr, &a1Str, &a2Str, &match.CreatedAt, &match.LastMessageAt)
	if err != nil {
		return nil, err
	}
	match.ID = uuid.MustParse(idStr)
	match.Agent1ID = uuid.MustParse(a1Str)
	match.Agent2ID = uuid.MustParse(a2Str)
	return match, nil
}

const matchColumns = `id, agent1_id, agent2_id, created_at, last_message_at`

// GetMatch retrieves a match by ID.
func (s *SQLiteStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	match, err := scanMatch(s.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE id = ?
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return match, nil
}

// collectMatches drains a match result set.
func collectMatches(rows *sql.Rows) ([]models.Match, error) {
	var matches []models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *match)
	}
	return matches, rows.Err()
}

// ListMatchesForAgent returns the agent's matches, most recently active first.
func (s *SQLiteStore) ListMatchesForAgent(ctx context.Context, agentID uuid.UUID) ([]models.Match, error) {
	id := agentID.String()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE agent1_id = ? OR agent2_id = ?
		ORDER BY last_message_at DESC, created_at DESC
	`, id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

// ListMatches returns all matches with pagination, newest first.
func (s *SQLiteStore) ListMatches(ctx context.Context, skip, limit int) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

// DeleteMatch removes a match and all of its messages.
func (s *SQLiteStore) DeleteMatch(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE match_id = ?`, id.String()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id.String()); err != nil {
		return err
	}
	return tx.Commit()
}

// CountMatches returns the total number of matches.
func (s *SQLiteStore) CountMatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

// CountMatchesForAgent counts matches the agent participates in.
func (s *SQLiteStore) CountMatchesForAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	id := agentID.String()
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches WHERE agent1_id = ? OR agent2_id = ?
	`, id, id).Scan(&count)
	return count, err
}

// CreateMessage inserts a message and bumps the match's last_message_at in
// one transaction.
func (s *SQLiteStore) CreateMessage(ctx context.Context, matchID, senderID uuid.UUID, text string) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	msg := &models.Message{
		ID:          uuid.Must(uuid.NewV7()),
		MatchID:     matchID,
		SenderID:    senderID,
		MessageText: text,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, match_id, sender_id, message_text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID.String(), matchID.String(), senderID.String(), text, msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE matches SET last_message_at = ? WHERE id = ?
	`, msg.CreatedAt, matchID.String())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

// scanMessage scans one message row.
func scanMessage(row interface {
	Scan(dest ...interface{}) error
}) (*models.Message, error) {
	msg := &models.Message{}
	var idStr, matchStr, senderStr string
	err := row.Scan(&idStr, &matchStr, &senderStr, &msg.MessageText, &msg.ReadAt, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	msg.ID = uuid.MustParse(idStr)
	msg.MatchID = uuid.MustParse(matchStr)
	msg.SenderID = uuid.MustParse(senderStr)
	return msg, nil
}

const messageColumns = `id, match_id, sender_id, message_text, read_at, created_at`

// ListMessages returns a match's messages ordered by creation time, with the
// id as a tie-break so the order is total.
func (s *SQLiteStore) ListMessages(ctx context.Context, matchID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE match_id = ?
		ORDER BY created_at, id
	`, matchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// LatestMessage returns the most recent message in a match, or nil.
func (s *SQLiteStore) LatestMessage(ctx context.Context, matchID uuid.UUID) (*models.Message, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE match_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, matchID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// MarkMessagesRead sets read_at on every unread message in the match sent by
// senderID. Returns the number of rows updated; repeat calls are no-ops.
func (s *SQLiteStore) MarkMessagesRead(ctx context.Context, matchID, senderID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read_at = ?
		WHERE match_id = ? AND sender_id = ? AND read_at IS NULL
	`, time.Now().UTC(), matchID.String(), senderID.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountMessages returns the total number of messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// CountMessagesSentBy counts messages sent by an agent.
func (s *SQLiteStore) CountMessagesSentBy(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE sender_id = ?
	`, agentID.String()).Scan(&count)
	return count, err
}

// CountUnread counts unread messages in a match sent by senderID.
func (s *SQLiteStore) CountUnread(ctx context.Context, matchID, senderID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE match_id = ? AND sender_id = ? AND read_at IS NULL
	`, matchID.String(), senderID.String()).Scan(&count)
	return count, err
}
