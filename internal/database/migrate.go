package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
CREATE TABLE IF NOT EXISTS users (
    id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    email         VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    role          ENUM('GUEST','STAFF') NOT NULL DEFAULT 'GUEST',
    is_active     TINYINT(1) NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`},
	{"refresh_tokens", `
CREATE TABLE IF NOT EXISTS refresh_tokens (
    id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    user_id    BIGINT UNSIGNED NOT NULL,
    token_hash CHAR(64) NOT NULL UNIQUE,
    expires_at DATETIME NOT NULL,
    revoked_at DATETIME NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_refresh_user (user_id),
    CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
)`},
	{"rooms", `
CREATE TABLE IF NOT EXISTS rooms (
    id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    number            VARCHAR(16) NOT NULL UNIQUE,
    type              VARCHAR(32) NOT NULL,
    base_price        BIGINT NOT NULL,
    hourly_first      BIGINT NOT NULL,
    hourly_additional BIGINT NOT NULL,
    max_occupancy     INT NOT NULL,
    housekeeping      VARCHAR(32) NOT NULL DEFAULT 'available',
    active            TINYINT(1) NOT NULL DEFAULT 1,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`},
	{"services", `
CREATE TABLE IF NOT EXISTS services (
    id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    name         VARCHAR(128) NOT NULL,
    price        BIGINT NOT NULL,
    unit         VARCHAR(16) NOT NULL,
    max_quantity INT NULL,
    active       TINYINT(1) NOT NULL DEFAULT 1
)`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
    id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    reference      CHAR(36) NOT NULL UNIQUE,
    room_id        BIGINT UNSIGNED NOT NULL,
    user_id        BIGINT UNSIGNED NOT NULL,
    adults         INT NOT NULL,
    children       INT NOT NULL DEFAULT 0,
    check_in       DATETIME NOT NULL,
    check_out      DATETIME NOT NULL,
    status         VARCHAR(16) NOT NULL,
    payment_method VARCHAR(16) NOT NULL DEFAULT '',
    payment_status VARCHAR(24) NOT NULL,
    room_charge    BIGINT NOT NULL,
    service_charge BIGINT NOT NULL,
    tax            BIGINT NOT NULL,
    total_amount   BIGINT NOT NULL,
    version        BIGINT NOT NULL,
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL,
    INDEX idx_bookings_room_window (room_id, status, check_in, check_out),
    INDEX idx_bookings_user (user_id),
    CONSTRAINT fk_bookings_room FOREIGN KEY (room_id) REFERENCES rooms(id)
)`},
	{"booking_services", `
CREATE TABLE IF NOT EXISTS booking_services (
    booking_id BIGINT UNSIGNED NOT NULL,
    service_id BIGINT UNSIGNED NOT NULL,
    name       VARCHAR(128) NOT NULL,
    unit       VARCHAR(16) NOT NULL,
    unit_price BIGINT NOT NULL,
    quantity   INT NOT NULL,
    amount     BIGINT NOT NULL,
    PRIMARY KEY (booking_id, service_id),
    CONSTRAINT fk_bs_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
)`},
	{"booking_status_history", `
CREATE TABLE IF NOT EXISTS booking_status_history (
    id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    booking_id BIGINT UNSIGNED NOT NULL,
    status     VARCHAR(16) NOT NULL,
    at         DATETIME NOT NULL,
    actor      VARCHAR(64) NOT NULL,
    reason     VARCHAR(255) NOT NULL DEFAULT '',
    fee        BIGINT NULL,
    refund     BIGINT NULL,
    INDEX idx_history_booking (booking_id, id),
    CONSTRAINT fk_history_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
)`},
	{"outbox_events", `
CREATE TABLE IF NOT EXISTS outbox_events (
    id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    queue        VARCHAR(64) NOT NULL,
    payload      JSON NOT NULL,
    created_at   DATETIME NOT NULL,
    published_at DATETIME NULL,
    INDEX idx_outbox_pending (published_at, id)
)`},
}

// Migrate creates any missing table.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, t := range schema {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("migrate %s: %w", t.name, err)
		}
	}
	return nil
}
