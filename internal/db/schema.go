package db

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT UNIQUE,
	password_hash TEXT,
	telegram_id   BIGINT UNIQUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS products (
	id              BIGSERIAL PRIMARY KEY,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	price           DOUBLE PRECISION NOT NULL,
	image_url       TEXT NOT NULL DEFAULT '',
	image_public_id TEXT NOT NULL DEFAULT '',
	seller_id       BIGINT NOT NULL REFERENCES users(id),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC);

CREATE TABLE IF NOT EXISTS chats (
	id         BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products(id),
	buyer_id   BIGINT NOT NULL REFERENCES users(id),
	seller_id  BIGINT NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
	CONSTRAINT chats_product_buyer_key UNIQUE (product_id, buyer_id),
	CONSTRAINT chats_no_self_chat CHECK (buyer_id <> seller_id)
);
CREATE INDEX IF NOT EXISTS idx_chats_buyer_id ON chats(buyer_id);
CREATE INDEX IF NOT EXISTS idx_chats_seller_id ON chats(seller_id);

CREATE TABLE IF NOT EXISTS messages (
	id         BIGSERIAL PRIMARY KEY,
	chat_id    BIGINT NOT NULL REFERENCES chats(id),
	author_id  BIGINT NOT NULL REFERENCES users(id),
	text       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id, id);
`
