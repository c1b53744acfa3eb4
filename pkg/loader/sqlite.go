package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/sitenav/pkg/model"
)

// Schema is the nav_items table read by LoadSQLite. Rows reference their
// parent by id; siblings are ordered by sort, then insertion order.
const Schema = `
CREATE TABLE IF NOT EXISTS nav_items (
	id          TEXT PRIMARY KEY,
	parent_id   TEXT,
	label       TEXT NOT NULL,
	url         TEXT NOT NULL DEFAULT '',
	record_type TEXT NOT NULL DEFAULT '',
	record_id   TEXT NOT NULL DEFAULT '',
	sort        INTEGER NOT NULL DEFAULT 0,
	collapsed   INTEGER NOT NULL DEFAULT 0,
	hidden      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_nav_items_parent ON nav_items(parent_id, sort);
`

// ErrCycle is returned when parent links do not form a forest.
var ErrCycle = errors.New("nav items contain a parent cycle")

// OpenSQLite opens (creating if needed) a navigation database and ensures
// the schema exists.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

type navRow struct {
	item     model.NavItem
	parentID string
}

// LoadSQLite reads the forest stored at path.
func LoadSQLite(ctx context.Context, path string) ([]model.NavItem, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return QueryItems(ctx, db)
}

// QueryItems assembles nav_items rows into a validated forest. Unknown
// parents and parent cycles are errors.
func QueryItems(ctx context.Context, db *sql.DB) ([]model.NavItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, COALESCE(parent_id, ''), label, url, record_type, record_id, collapsed, hidden
		FROM nav_items ORDER BY sort, rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying nav items: %w", err)
	}
	defer rows.Close()

	var all []navRow
	index := make(map[string]int)
	for rows.Next() {
		var r navRow
		var collapsed, hidden int
		if err := rows.Scan(&r.item.ID, &r.parentID, &r.item.Label, &r.item.URL,
			&r.item.RecordType, &r.item.RecordID, &collapsed, &hidden); err != nil {
			return nil, fmt.Errorf("scanning nav item: %w", err)
		}
		r.item.Collapsed = collapsed != 0
		r.item.Hidden = hidden != 0
		index[r.item.ID] = len(all)
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := checkForest(all, index); err != nil {
		return nil, err
	}

	children := make(map[string][]int)
	var roots []int
	for i, r := range all {
		if r.parentID == "" {
			roots = append(roots, i)
		} else {
			children[r.parentID] = append(children[r.parentID], i)
		}
	}

	var build func(i int) model.NavItem
	build = func(i int) model.NavItem {
		item := all[i].item
		for _, c := range children[item.ID] {
			item.Children = append(item.Children, build(c))
		}
		return item
	}

	items := make([]model.NavItem, 0, len(roots))
	for _, i := range roots {
		items = append(items, build(i))
	}
	if err := model.ValidateItems(items); err != nil {
		return nil, err
	}
	return items, nil
}

// checkForest rejects unknown parents and cycles. A parent->child graph that
// topo.Sort can order is acyclic, and with one parent per row that makes it
// a forest.
func checkForest(all []navRow, index map[string]int) error {
	g := simple.NewDirectedGraph()
	for i := range all {
		g.AddNode(simple.Node(int64(i)))
	}
	for i, r := range all {
		if r.parentID == "" {
			continue
		}
		p, ok := index[r.parentID]
		if !ok {
			return fmt.Errorf("nav item %s: unknown parent %s", r.item.ID, r.parentID)
		}
		if p == i {
			return fmt.Errorf("%w: %s is its own parent", ErrCycle, r.item.ID)
		}
		g.SetEdge(g.NewEdge(simple.Node(int64(p)), simple.Node(int64(i))))
	}

	if _, err := topo.Sort(g); err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			var ids []string
			for _, component := range unorderable {
				for _, n := range component {
					ids = append(ids, all[n.ID()].item.ID)
				}
			}
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(ids, ", "))
		}
		return err
	}
	return nil
}

// SaveSQLite replaces the contents of nav_items with items.
func SaveSQLite(ctx context.Context, path string, items []model.NavItem) error {
	if err := model.ValidateItems(items); err != nil {
		return err
	}
	db, err := OpenSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nav_items`); err != nil {
		return fmt.Errorf("clearing nav items: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nav_items (id, parent_id, label, url, record_type, record_id, sort, collapsed, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var insert func(list []model.NavItem, parent sql.NullString) error
	insert = func(list []model.NavItem, parent sql.NullString) error {
		for i, item := range list {
			if _, err := stmt.ExecContext(ctx, item.ID, parent, item.Label, item.URL,
				item.RecordType, item.RecordID, i, boolInt(item.Collapsed), boolInt(item.Hidden)); err != nil {
				return fmt.Errorf("inserting %s: %w", item.ID, err)
			}
			if err := insert(item.Children, sql.NullString{String: item.ID, Valid: true}); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(items, sql.NullString{}); err != nil {
		return err
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
