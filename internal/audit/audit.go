// Package audit persists the transaction trail as a flat CSV file. The trail
// is append-only: committed rows are never edited, and the only destructive
// operation is purging a deleted account's history. It deliberately shares no
// technology with the sqlite account store.
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcalder/pocketbank/internal/ledger"
)

// header is the stable trail layout; files written by earlier runs are
// extended in place, never rewritten.
var header = []string{"timestamp", "username", "account_class", "old_balance", "amount", "new_balance"}

// Log is an append-only CSV transaction trail at a fixed path. The file is
// opened per operation, so a Log can be constructed before the file exists.
type Log struct {
	path string
}

func New(path string) *Log {
	return &Log{path: path}
}

func (l *Log) Path() string { return l.path }

// Append writes one row, creating the file and its header on first use. The
// row is flushed and synced before returning so a committed balance mutation
// is never ahead of its trail entry for longer than this call.
func (l *Log) Append(rec ledger.TransactionRecord) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return &ledger.StorageError{Op: "append audit", Err: err}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &ledger.StorageError{Op: "append audit", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &ledger.StorageError{Op: "append audit", Err: err}
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return &ledger.StorageError{Op: "append audit", Err: err}
		}
	}
	if err := w.Write(encodeRecord(rec)); err != nil {
		return &ledger.StorageError{Op: "append audit", Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &ledger.StorageError{Op: "append audit", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &ledger.StorageError{Op: "append audit", Err: err}
	}
	return nil
}

// Records reads the whole trail back in append order. A missing file is an
// empty trail, not an error.
func (l *Log) Records() ([]ledger.TransactionRecord, error) {
	rows, err := l.readAll()
	if err != nil {
		return nil, err
	}
	var out []ledger.TransactionRecord
	for i, row := range rows {
		if i == 0 && row[0] == header[0] {
			continue
		}
		rec, err := decodeRecord(row)
		if err != nil {
			return nil, &ledger.StorageError{Op: "read audit", Err: fmt.Errorf("row %d: %w", i+1, err)}
		}
		out = append(out, rec)
	}
	return out, nil
}

// PurgeAccount rewrites the trail without the given username's rows and
// reports how many were removed. The rewrite goes through a temp file and a
// rename, so a crash mid-purge leaves the original trail untouched.
func (l *Log) PurgeAccount(username string) (int, error) {
	rows, err := l.readAll()
	if err != nil {
		return 0, err
	}

	var kept [][]string
	removed := 0
	for i, row := range rows {
		if i == 0 && row[0] == header[0] {
			kept = append(kept, row)
			continue
		}
		if row[1] == username {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	if removed == 0 {
		return 0, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".audit-*.csv")
	if err != nil {
		return 0, &ledger.StorageError{Op: "purge audit", Err: err}
	}
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(kept); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, &ledger.StorageError{Op: "purge audit", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, &ledger.StorageError{Op: "purge audit", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, &ledger.StorageError{Op: "purge audit", Err: err}
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return 0, &ledger.StorageError{Op: "purge audit", Err: err}
	}
	return removed, nil
}

func (l *Log) readAll() ([][]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &ledger.StorageError{Op: "read audit", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &ledger.StorageError{Op: "read audit", Err: err}
	}
	return rows, nil
}

func encodeRecord(rec ledger.TransactionRecord) []string {
	return []string{
		rec.Timestamp.Format(time.RFC3339),
		rec.Username,
		string(rec.Class),
		rec.OldBalance.StringFixed(2),
		rec.Amount.StringFixed(2),
		rec.NewBalance.StringFixed(2),
	}
}

func decodeRecord(row []string) (ledger.TransactionRecord, error) {
	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return ledger.TransactionRecord{}, err
	}
	class, err := ledger.ParseClass(row[2])
	if err != nil {
		return ledger.TransactionRecord{}, err
	}
	oldBal, err := decimal.NewFromString(row[3])
	if err != nil {
		return ledger.TransactionRecord{}, err
	}
	amount, err := decimal.NewFromString(row[4])
	if err != nil {
		return ledger.TransactionRecord{}, err
	}
	newBal, err := decimal.NewFromString(row[5])
	if err != nil {
		return ledger.TransactionRecord{}, err
	}
	return ledger.TransactionRecord{
		Username:   row[1],
		Class:      class,
		OldBalance: oldBal,
		Amount:     amount,
		NewBalance: newBal,
		Timestamp:  ts,
	}, nil
}
