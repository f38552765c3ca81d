package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"caremind/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS patients (
  an TEXT PRIMARY KEY,
  name TEXT,
  age TEXT,
  gender TEXT,
  ward TEXT,
  diagnosis TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_patients_ward ON patients(ward);

CREATE TABLE IF NOT EXISTS charts (
  patientId TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  chart_json TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ai_cache (
  key TEXT PRIMARY KEY,
  response TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  patientId TEXT NOT NULL,
  view TEXT NOT NULL,
  status TEXT NOT NULL,
  error TEXT,
  resultJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_patient ON runs(patientId, view);

CREATE TABLE IF NOT EXISTS shares (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  patientId TEXT NOT NULL,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertPatients(patients []internal.PatientInfo) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO patients (an, name, age, gender, ward, diagnosis, raw_json, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(an) DO UPDATE SET
  name=excluded.name,
  age=excluded.age,
  gender=excluded.gender,
  ward=excluded.ward,
  diagnosis=excluded.diagnosis,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range patients {
		rawJSON, _ := json.Marshal(p.Raw)
		if _, err := stmt.Exec(p.AN, p.Name, p.Age, p.Gender, p.Ward, p.Diagnosis, string(rawJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListPatients() ([]internal.PatientInfo, error) {
	rows, err := d.conn.Query(`SELECT an, name, age, gender, ward, diagnosis, raw_json FROM patients ORDER BY an ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PatientInfo
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) GetPatient(an string) (*internal.PatientInfo, error) {
	row := d.conn.QueryRow(`SELECT an, name, age, gender, ward, diagnosis, raw_json FROM patients WHERE an = ?`, an)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(s scanner) (internal.PatientInfo, error) {
	var p internal.PatientInfo
	var name, age, gender, ward, diagnosis sql.NullString
	var rawJSON string
	if err := s.Scan(&p.AN, &name, &age, &gender, &ward, &diagnosis, &rawJSON); err != nil {
		return internal.PatientInfo{}, err
	}
	p.Name, p.Age, p.Gender, p.Ward, p.Diagnosis = name.String, age.String, gender.String, ward.String, diagnosis.String
	_ = json.Unmarshal([]byte(rawJSON), &p.Raw)
	return p, nil
}

// SaveCharts replaces the stored chart of every patient in charts.
func (d *DB) SaveCharts(charts []internal.Chart, source string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO charts (patientId, source, chart_json) VALUES (?, ?, ?)
ON CONFLICT(patientId) DO UPDATE SET
  source=excluded.source,
  chart_json=excluded.chart_json,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range charts {
		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(c.PatientID, source, string(raw)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) GetChart(patientID string) (*internal.Chart, error) {
	var raw string
	err := d.conn.QueryRow(`SELECT chart_json FROM charts WHERE patientId = ?`, patientID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var chart internal.Chart
	if err := json.Unmarshal([]byte(raw), &chart); err != nil {
		return nil, fmt.Errorf("decode chart %s: %w", patientID, err)
	}
	return &chart, nil
}

func (d *DB) MustChart(patientID string) (internal.Chart, error) {
	chart, err := d.GetChart(patientID)
	if err != nil {
		return internal.Chart{}, err
	}
	if chart == nil {
		return internal.Chart{}, fmt.Errorf("chart not found: patientId=%s", patientID)
	}
	return *chart, nil
}

func (d *DB) ListChartPatientIDs() ([]string, error) {
	rows, err := d.conn.Query(`SELECT patientId FROM charts ORDER BY patientId ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DB) GetCachedResponse(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT response FROM ai_cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) PutCachedResponse(key, response string) error {
	_, err := d.conn.Exec(`
INSERT INTO ai_cache (key, response) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET response = excluded.response, createdAt = CURRENT_TIMESTAMP
`, key, response)
	return err
}

func (d *DB) InsertRun(traceID, patientID, view, status, errMsg string, result any) error {
	resultJSON, _ := json.Marshal(result)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, patientId, view, status, error, resultJson) VALUES (?, ?, ?, ?, ?, ?)`,
		traceID, patientID, view, status, errMsg, string(resultJSON))
	return err
}

// ListRuns returns the newest runs first. An empty patientID lists every patient.
func (d *DB) ListRuns(patientID string, limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, patientId, view, status, COALESCE(error, ''), resultJson, createdAt
FROM runs WHERE (? = '' OR patientId = ?) ORDER BY id DESC LIMIT ?
`, patientID, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		if err := rows.Scan(&row.ID, &row.TraceID, &row.PatientID, &row.View, &row.Status, &row.Error, &row.Result, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) InsertShare(patientID, provider, messageID, rawRef string) error {
	_, err := d.conn.Exec(`INSERT INTO shares (patientId, provider, messageId, rawRef) VALUES (?, ?, ?, ?)`, patientID, provider, messageID, rawRef)
	return err
}

func (d *DB) ListShares(patientID string) ([]internal.ShareRow, error) {
	rows, err := d.conn.Query(`
SELECT id, patientId, provider, messageId, rawRef, createdAt FROM shares WHERE patientId = ? ORDER BY id ASC
`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ShareRow
	for rows.Next() {
		var row internal.ShareRow
		if err := rows.Scan(&row.ID, &row.PatientID, &row.Provider, &row.MessageID, &row.RawRef, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
