// Package noticestate is the reference persistence service behind the
// notice panel: per-user dismissals, panel settings and the bootstrap
// payload, served over HTTP.
package noticestate

// Schema creates the tables used by the service. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS dismissed_notices (
	user_id      TEXT    NOT NULL,
	notice_id    TEXT    NOT NULL,
	dismissed_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, notice_id)
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
);
`
