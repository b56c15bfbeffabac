// Package sqlbook is the durable SQL-backed implementation of
// orderbook.Store, built on mattn/go-sqlite3 via database/sql. Schema,
// paging clause, and the hard-fail-on-zero-rows-affected behavior of
// Update/Delete are carried over bit-for-bit from the embedded SQL engine
// this module replaces.
package sqlbook

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ledgerdex/matchcore/internal/asset"
	"github.com/ledgerdex/matchcore/internal/orderbook"
	"github.com/ledgerdex/matchcore/internal/price"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	seller_address     TEXT       NOT NULL,
	order_id           TEXT(128)  NOT NULL PRIMARY KEY,
	selling_asset_type INTEGER    NOT NULL,
	selling_asset_code TEXT,
	selling_issuer     TEXT,
	buying_asset_type  INTEGER    NOT NULL,
	buying_asset_code  TEXT,
	buying_issuer      TEXT,
	amount             BIGINT     NOT NULL CHECK (amount >= 0),
	price_n            INTEGER    NOT NULL,
	price_d            INTEGER    NOT NULL,
	price              DOUBLE     NOT NULL,
	flags              INTEGER    NOT NULL,
	last_modified      INTEGER    NOT NULL,
	tx_hash            TEXT(64)   NOT NULL,
	op_index           INTEGER    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_selling_issuer ON orders(selling_issuer);
CREATE INDEX IF NOT EXISTS idx_orders_buying_issuer ON orders(buying_issuer);
CREATE INDEX IF NOT EXISTS idx_orders_price ON orders(price);
`

// Store is a SQLite-backed orderbook.Store. It caches prepared statements
// keyed by raw SQL text, matching the source's std::map<string, stmt>
// cache; the cache is cleared before DropAndRecreate runs.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	stmts map[string]*sql.Stmt
}

// Open opens (creating if absent) a SQLite database at path, enabling WAL
// mode and a 10-second busy timeout so concurrent readers don't hit
// SQLITE_BUSY while a writer holds the file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("sqlbook: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlbook: create schema: %w", err)
	}
	return &Store{db: db, stmts: make(map[string]*sql.Stmt)}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmts = make(map[string]*sql.Stmt)
	return s.db.Close()
}

// prepare returns a cached *sql.Stmt for query, preparing and caching it
// on first use.
func (s *Store) prepare(query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	s.stmts[query] = stmt
	return stmt, nil
}

// clearStatementCache invalidates every cached prepared statement. It
// must be called before any schema-altering operation.
func (s *Store) clearStatementCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmts = make(map[string]*sql.Stmt)
}

const selectColumns = `seller_address, order_id, selling_asset_type, selling_asset_code, selling_issuer,
	buying_asset_type, buying_asset_code, buying_issuer, amount, price_n, price_d, flags, last_modified, tx_hash, op_index`

func (s *Store) LoadOrder(orderID string) (orderbook.Order, bool, error) {
	query := `SELECT ` + selectColumns + ` FROM orders WHERE order_id = ?`
	stmt, err := s.prepare(query)
	if err != nil {
		return orderbook.Order{}, false, err
	}
	row := stmt.QueryRow(orderID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return orderbook.Order{}, false, nil
	}
	if err != nil {
		return orderbook.Order{}, false, err
	}
	return o, true, nil
}

func (s *Store) Insert(o orderbook.Order) error {
	query := `INSERT INTO orders (` + selectColumns + `, price) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?, ?)`
	stmt, err := s.prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(
		o.SellerAddress, o.OrderID, int(o.Selling.Kind), nullableCode(o.Selling), nullableIssuer(o.Selling),
		int(o.Buying.Kind), nullableCode(o.Buying), nullableIssuer(o.Buying),
		o.Amount, o.Price.N, o.Price.D, o.Flags, o.LastModifiedBlock, o.TxHash, o.OpIndex,
		computePrice(o.Price),
	)
	if err != nil {
		return fmt.Errorf("sqlbook: insert %s: %w", o.OrderID, err)
	}
	return nil
}

func (s *Store) Update(o orderbook.Order) error {
	query := `UPDATE orders SET seller_address=?, selling_asset_type=?, selling_asset_code=?, selling_issuer=?,
		buying_asset_type=?, buying_asset_code=?, buying_issuer=?, amount=?, price_n=?, price_d=?, price=?,
		flags=?, last_modified=?, tx_hash=?, op_index=? WHERE order_id=?`
	stmt, err := s.prepare(query)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(
		o.SellerAddress, int(o.Selling.Kind), nullableCode(o.Selling), nullableIssuer(o.Selling),
		int(o.Buying.Kind), nullableCode(o.Buying), nullableIssuer(o.Buying),
		o.Amount, o.Price.N, o.Price.D, computePrice(o.Price),
		o.Flags, o.LastModifiedBlock, o.TxHash, o.OpIndex,
		o.OrderID,
	)
	if err != nil {
		return fmt.Errorf("sqlbook: update %s: %w", o.OrderID, err)
	}
	return requireOneRowAffected(res, "update", o.OrderID)
}

func (s *Store) Delete(orderID string) error {
	query := `DELETE FROM orders WHERE order_id = ?`
	stmt, err := s.prepare(query)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(orderID)
	if err != nil {
		return fmt.Errorf("sqlbook: delete %s: %w", orderID, err)
	}
	return requireOneRowAffected(res, "delete", orderID)
}

// requireOneRowAffected enforces the hard-fail-on-zero-rows-affected
// contract Update and Delete owe their callers: a zero-row result means
// the book and the caller's view of it have diverged, which is fatal.
func requireOneRowAffected(res sql.Result, op, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlbook: %s %s: rows affected: %w", op, orderID, err)
	}
	if n != 1 {
		return fmt.Errorf("sqlbook: %s %s: expected 1 row affected, got %d", op, orderID, n)
	}
	return nil
}

func (s *Store) LoadBest(n, offset int, selling, buying asset.Key) ([]orderbook.Order, error) {
	query := `SELECT ` + selectColumns + ` FROM orders WHERE ` + pairPredicate() +
		` ORDER BY price ASC, order_id ASC LIMIT ? OFFSET ?`
	stmt, err := s.prepare(query)
	if err != nil {
		return nil, err
	}
	args := pairArgs(selling, buying)
	args = append(args, n, offset)
	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, fmt.Errorf("sqlbook: load_best: %w", err)
	}
	defer rows.Close()

	var out []orderbook.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) Count(fromBlock, toBlock int64) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE last_modified BETWEEN ? AND ?`
	stmt, err := s.prepare(query)
	if err != nil {
		return 0, err
	}
	var n int
	if err := stmt.QueryRow(fromBlock, toBlock).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlbook: count: %w", err)
	}
	return n, nil
}

func (s *Store) DropAndRecreate() error {
	s.clearStatementCache()
	if _, err := s.db.Exec(`DROP TABLE IF EXISTS orders;`); err != nil {
		return fmt.Errorf("sqlbook: drop: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlbook: recreate: %w", err)
	}
	return nil
}

func computePrice(p price.Price) float64 {
	return float64(p.N) / float64(p.D)
}

func pairPredicate() string {
	return `selling_asset_type=? AND IFNULL(selling_asset_code,'')=IFNULL(?,'') AND IFNULL(selling_issuer,'')=IFNULL(?,'') AND
		buying_asset_type=? AND IFNULL(buying_asset_code,'')=IFNULL(?,'') AND IFNULL(buying_issuer,'')=IFNULL(?,'')`
}

func pairArgs(selling, buying asset.Key) []interface{} {
	return []interface{}{
		int(selling.Kind), nullableCode(selling), nullableIssuer(selling),
		int(buying.Kind), nullableCode(buying), nullableIssuer(buying),
	}
}

func nullableCode(k asset.Key) interface{} {
	if k.Kind == asset.NativeCoin {
		return nil
	}
	return k.Code
}

func nullableIssuer(k asset.Key) interface{} {
	if k.Kind == asset.NativeCoin {
		return nil
	}
	return k.Issuer.Hex()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scanner) (orderbook.Order, error) {
	var o orderbook.Order
	var sellingType, buyingType int
	var sellingCode, sellingIssuer, buyingCode, buyingIssuer sql.NullString
	err := row.Scan(
		&o.SellerAddress, &o.OrderID, &sellingType, &sellingCode, &sellingIssuer,
		&buyingType, &buyingCode, &buyingIssuer, &o.Amount, &o.Price.N, &o.Price.D,
		&o.Flags, &o.LastModifiedBlock, &o.TxHash, &o.OpIndex,
	)
	if err != nil {
		return orderbook.Order{}, err
	}
	o.Selling = asset.Key{Kind: asset.Kind(sellingType), Code: sellingCode.String}
	o.Buying = asset.Key{Kind: asset.Kind(buyingType), Code: buyingCode.String}
	if sellingIssuer.Valid {
		o.Selling.Issuer = hexToAddress(sellingIssuer.String)
	}
	if buyingIssuer.Valid {
		o.Buying.Issuer = hexToAddress(buyingIssuer.String)
	}
	return o, nil
}
