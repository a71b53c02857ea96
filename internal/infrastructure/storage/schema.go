package storage

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tracked_topics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		region TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		link TEXT NOT NULL UNIQUE,
		published_at TEXT,
		source_name TEXT NOT NULL,
		region TEXT NOT NULL,
		raw_snippet TEXT,
		topic_tag TEXT NOT NULL,
		processed_at TEXT,
		sentiment TEXT,
		tickers TEXT,
		digest TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created ON articles (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_processed ON articles (processed_at)`,
	`CREATE TABLE IF NOT EXISTS topic_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic_tag TEXT NOT NULL,
		region TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		headline TEXT NOT NULL,
		summary TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		tickers TEXT,
		source_articles TEXT,
		article_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_batch ON topic_summaries (batch_id)`,
	`CREATE TABLE IF NOT EXISTS briefings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		brief_date TEXT NOT NULL,
		session TEXT NOT NULL,
		overall_sentiment TEXT,
		must_reads TEXT,
		themes TEXT,
		fallback INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE (brief_date, session)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tracked_topics (
		id BIGSERIAL PRIMARY KEY,
		label TEXT NOT NULL,
		region TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		link TEXT NOT NULL UNIQUE,
		published_at TEXT,
		source_name TEXT NOT NULL,
		region TEXT NOT NULL,
		raw_snippet TEXT,
		topic_tag TEXT NOT NULL,
		processed_at TEXT,
		sentiment TEXT,
		tickers TEXT,
		digest TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created ON articles (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_processed ON articles (processed_at)`,
	`CREATE TABLE IF NOT EXISTS topic_summaries (
		id BIGSERIAL PRIMARY KEY,
		topic_tag TEXT NOT NULL,
		region TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		headline TEXT NOT NULL,
		summary TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		tickers TEXT,
		source_articles TEXT,
		article_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_batch ON topic_summaries (batch_id)`,
	`CREATE TABLE IF NOT EXISTS briefings (
		id BIGSERIAL PRIMARY KEY,
		brief_date TEXT NOT NULL,
		session TEXT NOT NULL,
		overall_sentiment TEXT,
		must_reads TEXT,
		themes TEXT,
		fallback BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		UNIQUE (brief_date, session)
	)`,
}
