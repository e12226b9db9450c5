// Package sqlite provides SQLite database writing for aggregated
// term tables, so expand and filter results can be queried directly.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/metaproteo/termquant/pkg/core"
	_ "github.com/mattn/go-sqlite3"
)

// Date format for RunTable (ISO 8601)
const runDateFormat = "2006-01-02"

// Writer handles writing term records to SQLite database files.
type Writer struct {
	db        *sql.DB
	groups    *core.SampleGroups
	termStmt  *sql.Stmt
	groupStmt *sql.Stmt
	termID    int
}

// NewWriter creates a new SQLite writer for the given sample groups.
func NewWriter(outputPath string, groups *core.SampleGroups) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:     db,
		groups: groups,
		termID: 1,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema.
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS TermTable (
		TermId INTEGER PRIMARY KEY,
		Accession TEXT NOT NULL,
		Name TEXT,
		Namespace TEXT,
		NPepDirect INTEGER,
		NPepInherit INTEGER,
		NChildrenOK INTEGER,
		EvidencePass BOOL,
		InformativePass BOOL,
		CoveragePass BOOL
	);

	CREATE TABLE IF NOT EXISTS GroupStatTable (
		TermId INTEGER REFERENCES TermTable(TermId),
		GroupName TEXT NOT NULL,
		MeanIntensity DOUBLE,
		SampleCount INTEGER,
		PeptideCount INTEGER
	);

	CREATE TABLE IF NOT EXISTS RunTable (
		CreationDate TEXT,
		TermCount INTEGER,
		GroupNames TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion.
func (w *Writer) prepareStatements() error {
	var err error

	w.termStmt, err = w.db.Prepare(`
		INSERT INTO TermTable (
			TermId, Accession, Name, Namespace,
			NPepDirect, NPepInherit, NChildrenOK,
			EvidencePass, InformativePass, CoveragePass
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare term statement: %w", err)
	}

	w.groupStmt, err = w.db.Prepare(`
		INSERT INTO GroupStatTable (
			TermId, GroupName, MeanIntensity, SampleCount, PeptideCount
		) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare group statement: %w", err)
	}

	return nil
}

// WriteRecord writes a single term record and its per-group
// statistics. A missing group mean is stored as NULL, never as zero.
func (w *Writer) WriteRecord(r *core.TermRecord) error {
	_, err := w.termStmt.Exec(
		w.termID,
		r.TermID,
		r.Name,
		r.Namespace,
		r.DirectPeptides,
		r.InheritedPeptides,
		r.ChildrenOK,
		r.Flags.Evidence,
		r.Flags.Informative,
		r.Flags.Coverage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert term %s: %w", r.TermID, err)
	}

	for _, g := range w.groups.Names {
		stat := r.Groups[g]
		var mean interface{}
		if !core.Missing(stat.Mean) {
			mean = stat.Mean
		}
		_, err := w.groupStmt.Exec(w.termID, g, mean, stat.SampleCount, stat.PeptideCount)
		if err != nil {
			return fmt.Errorf("failed to insert group stats for term %s: %w", r.TermID, err)
		}
	}

	w.termID++
	return nil
}

// Finalize writes the run metadata and closes the database.
func (w *Writer) Finalize() error {
	groupNames := ""
	for i, g := range w.groups.Names {
		if i > 0 {
			groupNames += ","
		}
		groupNames += g
	}

	_, err := w.db.Exec(`
		INSERT INTO RunTable (CreationDate, TermCount, GroupNames)
		VALUES (?, ?, ?)
	`, time.Now().Format(runDateFormat), w.termID-1, groupNames)
	if err != nil {
		return fmt.Errorf("failed to insert run metadata: %w", err)
	}

	if w.termStmt != nil {
		w.termStmt.Close()
	}
	if w.groupStmt != nil {
		w.groupStmt.Close()
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize).
func (w *Writer) Close() error {
	return w.Finalize()
}
