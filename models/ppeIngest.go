package models

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"bitbucket.org/lgugso/assets_backend/config"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// NewPpeEntry is one submitted line item. It lives only for the duration of
// the ingestion request; the persisted shape is PpeEntry plus the per-unit
// tag rows.
type NewPpeEntry struct {
	EntityName   string          `json:"entityName"`
	FundCluster  string          `json:"fundCluster"`
	Department   string          `json:"department"`
	Description  string          `json:"description"`
	EndUser      string          `json:"endUser"`
	DateAcquired string          `json:"dateAcquired"`
	Quantity     int             `json:"quantity" validate:"min=0"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	TotalCost    decimal.Decimal `json:"totalCost"`
}

// Items whose total cost exceeds this threshold are issued under a Property
// Acknowledgement Receipt; everything at or below it goes on an Inventory
// Custodian Slip. COA-prescribed cutoff, overridable per deployment.
var highValueThreshold = decimal.NewFromInt(49999)

// End-user id stamped on tag rows until assignment is recorded.
var defaultEndUserId = 123

func init() {
	if v := os.Getenv("PPE_HIGH_VALUE_THRESHOLD"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			highValueThreshold = d
		}
	}
	if v := os.Getenv("PPE_DEFAULT_END_USER_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			defaultEndUserId = n
		}
	}
}

// classification describes one of the two issuance branches. Tag inserts go
// through Table()+map writes so both branches share one insert path despite
// the differing column names.
type classification struct {
	prefix     string // slip number prefix: "par" or "ics"
	table      string
	tagColumn  string // per-unit tag column
	slipColumn string // slip number column
}

var (
	parClassification = classification{prefix: "par", table: "par_records", tagColumn: "property_id", slipColumn: "par_id"}
	icsClassification = classification{prefix: "ics", table: "ics_records", tagColumn: "inventory_id", slipColumn: "ics_id"}
)

func classify(entry NewPpeEntry) classification {
	if entry.TotalCost.GreaterThan(highValueThreshold) {
		return parClassification
	}
	return icsClassification
}

// classifyEntries partitions a batch by the high-value threshold. Pure; no
// store access.
func classifyEntries(entries []NewPpeEntry) (par []NewPpeEntry, ics []NewPpeEntry) {
	for _, entry := range entries {
		if classify(entry).prefix == parClassification.prefix {
			par = append(par, entry)
		} else {
			ics = append(ics, entry)
		}
	}
	return par, ics
}

// slipCounts is the row-count snapshot a slip number is derived from: the raw
// row count seeds the per-unit tag counter, the distinct slip count seeds the
// slip sequence.
type slipCounts struct {
	Rows          int64
	DistinctSlips int64
}

func (cls classification) counts(tx *gorm.DB) (slipCounts, error) {
	var c slipCounts
	if err := tx.Table(cls.table).Count(&c.Rows).Error; err != nil {
		return c, err
	}
	if err := tx.Table(cls.table).Distinct(cls.slipColumn).Count(&c.DistinctSlips).Error; err != nil {
		return c, err
	}
	return c, nil
}

// slipNumber formats the next document number for a branch: sequence is the
// distinct slip count plus one, scoped by calendar year and month of creation.
func slipNumber(prefix string, distinctSlips int64, now time.Time) string {
	return fmt.Sprintf("%s%d %d-%d", prefix, distinctSlips+1, now.Year(), int(now.Month()))
}

// unitTagNumber derives a per-physical-unit tag from the parent slip number.
func unitTagNumber(slip string, unitSeq int64) string {
	return fmt.Sprintf("%s %d", slip, unitSeq)
}

// ingestTracker is the request-scoped completion accumulator: per branch it
// records how many unit-tag inserts the batch is expected to produce and how
// many have committed. Never shared across requests.
type ingestTracker struct {
	mu        sync.Mutex
	expected  map[string]int
	completed map[string]int
}

func newIngestTracker() *ingestTracker {
	return &ingestTracker{
		expected:  make(map[string]int),
		completed: make(map[string]int),
	}
}

func (t *ingestTracker) expect(prefix string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expected[prefix] += n
}

func (t *ingestTracker) complete(prefix string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed[prefix] += n
}

// done reports whether every expected insert has completed. A batch that
// expects nothing (all quantities zero) is done immediately.
func (t *ingestTracker) done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for prefix, want := range t.expected {
		if t.completed[prefix] < want {
			return false
		}
	}
	return true
}

func (t *ingestTracker) totalExpected() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, n := range t.expected {
		total += n
	}
	return total
}

func (t *ingestTracker) totalCompleted() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, n := range t.completed {
		total += n
	}
	return total
}

// IngestResult summarizes one accepted batch.
type IngestResult struct {
	Entries int `json:"entries"`
	Tags    int `json:"tags"`
}

// Slip-sequence numbers derive from live row counts, so concurrent inserts
// into the same branch must not interleave between the count read and the
// writes. GET_LOCK is connection-scoped: acquire and release on the same
// *gorm.DB connection that runs the transaction.
func acquireSlipSequenceLock(conn *gorm.DB, prefix string) error {
	lockName := fmt.Sprintf("ppe_slipseq:%s", prefix)
	var ok int
	if err := conn.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire slip sequence lock for %s", prefix)
	}
	return nil
}

func releaseSlipSequenceLock(conn *gorm.DB, prefix string) {
	lockName := fmt.Sprintf("ppe_slipseq:%s", prefix)
	var ok int
	_ = conn.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&ok).Error
}

// CreatePpeEntries ingests a batch of line items: classifies each by total
// cost, generates its slip number and per-unit tags, and persists one master
// row plus quantity-many tag rows per item. Line items fan out concurrently;
// each one commits or rolls back in its own transaction, so a failed item
// never unwinds committed siblings. The first error is returned once every
// dispatched item has finished.
func CreatePpeEntries(ctx context.Context, entries []NewPpeEntry) (*IngestResult, error) {
	db := config.GetDB()

	tracker := newIngestTracker()
	for _, entry := range entries {
		tracker.expect(classify(entry).prefix, entry.Quantity)
	}

	// Ordinal base for item_id: the registry size read once at batch start,
	// then advanced in memory per line item.
	var totalItems int64
	if err := db.WithContext(ctx).Model(&PpeEntry{}).Count(&totalItems).Error; err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		itemId := totalItems + int64(i) + 1
		entry := entry
		g.Go(func() error {
			return insertPpeEntry(gctx, db, entry, itemId, tracker)
		})
	}

	err := g.Wait()
	result := &IngestResult{Entries: len(entries), Tags: tracker.totalCompleted()}
	if err != nil {
		return result, err
	}

	if !tracker.done() {
		// Every goroutine returned nil yet counters disagree; nothing sane to
		// report beyond the mismatch itself.
		return result, fmt.Errorf("ingest completed %d of %d expected tag inserts", tracker.totalCompleted(), tracker.totalExpected())
	}

	removePpeEntryCaches()
	return result, nil
}

// insertPpeEntry persists one line item: master row plus one tag row per unit
// of quantity, all in one transaction under the branch's sequence lock.
func insertPpeEntry(ctx context.Context, db *gorm.DB, input NewPpeEntry, itemId int64, tracker *ingestTracker) error {
	cls := classify(input)

	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := acquireSlipSequenceLock(conn, cls.prefix); err != nil {
			return err
		}
		defer releaseSlipSequenceLock(conn, cls.prefix)

		err := conn.Transaction(func(tx *gorm.DB) error {
			counts, err := cls.counts(tx)
			if err != nil {
				return err
			}

			slip := slipNumber(cls.prefix, counts.DistinctSlips, time.Now())

			master := PpeEntry{
				ItemId:       itemId,
				FormId:       slip,
				EntityName:   input.EntityName,
				FundCluster:  input.FundCluster,
				Department:   input.Department,
				Description:  input.Description,
				EndUser:      input.EndUser,
				DateAcquired: input.DateAcquired,
				Quantity:     input.Quantity,
				Unit:         input.Unit,
				UnitCost:     input.UnitCost,
				TotalCost:    input.TotalCost,
			}
			if err := tx.Create(&master).Error; err != nil {
				return err
			}

			// The raw row count runs on as the unit tag counter, so tags keep
			// increasing across line items and batches.
			unitSeq := counts.Rows
			for i := 0; i < input.Quantity; i++ {
				unitSeq++
				row := map[string]any{
					cls.tagColumn:  unitTagNumber(slip, unitSeq),
					cls.slipColumn: slip,
					"item_id":      itemId,
					"end_user_id":  defaultEndUserId,
					"inspected":    false,
					"created_at":   time.Now(),
				}
				if err := tx.Table(cls.table).Create(row).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		// Completion is counted on commit: a rolled-back item contributes
		// nothing.
		tracker.complete(cls.prefix, input.Quantity)
		return nil
	})
}
