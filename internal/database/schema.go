package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the DDL statements applied by Migrate, in dependency order.
// Cross-request invariants live here as unique indexes: account email,
// listing/post/category/tag slugs, one author per account and one
// application per (account, listing).  Listings own their applications
// (ON DELETE CASCADE); accounts are deactivated, never deleted, but the
// cascade is declared so a manual delete cannot leave orphans.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(254) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		first_name    VARCHAR(30)  NOT NULL,
		last_name     VARCHAR(30)  NOT NULL,
		phone_number  VARCHAR(20)  NOT NULL,
		is_staff      BOOLEAN NOT NULL DEFAULT FALSE,
		is_superuser  BOOLEAN NOT NULL DEFAULT FALSE,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_accounts_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		account_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_account (account_id),
		CONSTRAINT fk_refresh_tokens_account FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS listings (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title        VARCHAR(200) NOT NULL,
		company      VARCHAR(200) NOT NULL,
		location     VARCHAR(200) NOT NULL,
		category     ENUM('full_time','part_time','contract','internship','remote') NOT NULL,
		salary_min   DECIMAL(10,2) NULL,
		salary_max   DECIMAL(10,2) NULL,
		description  TEXT NOT NULL,
		requirements TEXT NOT NULL,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		slug         VARCHAR(255) NOT NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_listings_slug (slug),
		KEY idx_listings_active_created (is_active, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS applications (
		id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		listing_id          BIGINT UNSIGNED NOT NULL,
		account_id          BIGINT UNSIGNED NOT NULL,
		document_id         VARCHAR(255) NOT NULL,
		document_url        VARCHAR(1024) NOT NULL,
		cover_letter        TEXT NOT NULL,
		years_of_experience INT UNSIGNED NOT NULL DEFAULT 0,
		linkedin_url        VARCHAR(200) NOT NULL DEFAULT '',
		portfolio_url       VARCHAR(200) NOT NULL DEFAULT '',
		status              ENUM('pending','reviewed','accepted','rejected') NOT NULL DEFAULT 'pending',
		applied_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_applications_listing_account (listing_id, account_id),
		KEY idx_applications_account (account_id, applied_at),
		CONSTRAINT fk_applications_listing FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE,
		CONSTRAINT fk_applications_account FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS authors (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		account_id BIGINT UNSIGNED NOT NULL,
		bio        TEXT NOT NULL,
		avatar_id  VARCHAR(255) NOT NULL DEFAULT '',
		avatar_url VARCHAR(1024) NOT NULL DEFAULT '',
		UNIQUE KEY uq_authors_account (account_id),
		CONSTRAINT fk_authors_account FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS categories (
		id   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		slug VARCHAR(120) NOT NULL,
		UNIQUE KEY uq_categories_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tags (
		id   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		slug VARCHAR(70) NOT NULL,
		UNIQUE KEY uq_tags_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS posts (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title       VARCHAR(200) NOT NULL,
		slug        VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		content     MEDIUMTEXT NOT NULL,
		image_id    VARCHAR(255) NOT NULL DEFAULT '',
		image_url   VARCHAR(1024) NOT NULL DEFAULT '',
		author_id   BIGINT UNSIGNED NOT NULL,
		date        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		draft       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_posts_slug (slug),
		KEY idx_posts_draft_date (draft, date),
		CONSTRAINT fk_posts_author FOREIGN KEY (author_id) REFERENCES authors(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS post_categories (
		post_id     BIGINT UNSIGNED NOT NULL,
		category_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (post_id, category_id),
		CONSTRAINT fk_post_categories_post FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
		CONSTRAINT fk_post_categories_category FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS post_tags (
		post_id BIGINT UNSIGNED NOT NULL,
		tag_id  BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (post_id, tag_id),
		CONSTRAINT fk_post_tags_post FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
		CONSTRAINT fk_post_tags_tag FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.  Statements are idempotent so it runs on
// every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
