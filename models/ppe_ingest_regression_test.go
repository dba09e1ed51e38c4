package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/lgugso/assets_backend/config"
	"bitbucket.org/lgugso/assets_backend/models"
	"github.com/shopspring/decimal"
)

// PPE ingestion regression harness.
//
// Covers the numbering and completion invariants end to end against a real
// MySQL: slip sequence = distinct slip count + 1, unit tags continue from the
// live row count, one master per line item, quantity-many tags per item,
// zero-quantity items, and deliberate non-idempotence of resubmission.
//
// Usage (requires Docker): INTEGRATION_TESTS=1 go test ./models -run PpeIngest -v

func TestPpeIngestNumberingRegression(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "assets_test")

	// Connect deps.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Migrate schema (in a fresh DB).
	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	now := time.Now()
	ym := fmt.Sprintf("%d-%d", now.Year(), int(now.Month()))

	lineItem := func(totalCost string, quantity int) models.NewPpeEntry {
		cost, err := decimal.NewFromString(totalCost)
		if err != nil {
			t.Fatalf("bad decimal %q: %v", totalCost, err)
		}
		unitCost := cost
		if quantity > 0 {
			unitCost = cost.Div(decimal.NewFromInt(int64(quantity)))
		}
		return models.NewPpeEntry{
			EntityName:   "LGU Caraga",
			FundCluster:  "01",
			Department:   "GSO",
			Description:  "test asset",
			EndUser:      "J. Dela Cruz",
			DateAcquired: "2026-01-15",
			Quantity:     quantity,
			Unit:         "unit",
			UnitCost:     unitCost,
			TotalCost:    cost,
		}
	}

	// 1) High-value item, quantity 2, empty registry: expect slip "par1 {ym}"
	// and property tags "par1 {ym} 1" and "par1 {ym} 2".
	result, err := models.CreatePpeEntries(ctx, []models.NewPpeEntry{lineItem("50000", 2)})
	if err != nil {
		t.Fatalf("CreatePpeEntries (high-value): %v", err)
	}
	if result.Entries != 1 || result.Tags != 2 {
		t.Fatalf("high-value ingest result: expected 1 entry / 2 tags, got %+v", result)
	}

	wantSlip := "par1 " + ym
	var master models.PpeEntry
	if err := db.WithContext(ctx).Where("form_id = ?", wantSlip).First(&master).Error; err != nil {
		t.Fatalf("master row with form_id %q: %v", wantSlip, err)
	}
	if master.ItemId != 1 {
		t.Fatalf("master item_id: expected 1, got %d", master.ItemId)
	}

	var parRows []models.ParRecord
	if err := db.WithContext(ctx).Order("property_id").Find(&parRows).Error; err != nil {
		t.Fatalf("fetch par rows: %v", err)
	}
	if len(parRows) != 2 {
		t.Fatalf("expected 2 PAR rows, got %d", len(parRows))
	}
	for i, row := range parRows {
		wantTag := fmt.Sprintf("%s %d", wantSlip, i+1)
		if row.PropertyId != wantTag {
			t.Fatalf("PAR tag %d: expected %q, got %q", i, wantTag, row.PropertyId)
		}
		if row.ParId != wantSlip {
			t.Fatalf("PAR slip backref: expected %q, got %q", wantSlip, row.ParId)
		}
		if row.ItemId != master.ItemId {
			t.Fatalf("PAR item backref: expected %d, got %d", master.ItemId, row.ItemId)
		}
		if row.EndUserId != 123 {
			t.Fatalf("PAR end user: expected placeholder 123, got %d", row.EndUserId)
		}
	}

	// 2) Low-value item with 3 pre-existing distinct ICS slips: next slip is
	// "ics4 {ym}", and the unit tag counter continues from the raw row count.
	for i := 1; i <= 3; i++ {
		seed := models.IcsRecord{
			InventoryId: fmt.Sprintf("seed-tag-%d", i),
			IcsId:       fmt.Sprintf("seed-slip-%d", i),
			ItemId:      900 + int64(i),
			EndUserId:   123,
		}
		if err := db.WithContext(ctx).Create(&seed).Error; err != nil {
			t.Fatalf("seed ICS row %d: %v", i, err)
		}
	}

	result, err = models.CreatePpeEntries(ctx, []models.NewPpeEntry{lineItem("100", 1)})
	if err != nil {
		t.Fatalf("CreatePpeEntries (low-value): %v", err)
	}
	if result.Tags != 1 {
		t.Fatalf("low-value ingest result: expected 1 tag, got %+v", result)
	}

	wantIcsSlip := "ics4 " + ym
	var icsMaster models.PpeEntry
	if err := db.WithContext(ctx).Where("form_id = ?", wantIcsSlip).First(&icsMaster).Error; err != nil {
		t.Fatalf("master row with form_id %q: %v", wantIcsSlip, err)
	}
	if icsMaster.ItemId != 2 {
		t.Fatalf("second master item_id: expected 2, got %d", icsMaster.ItemId)
	}

	var icsRow models.IcsRecord
	if err := db.WithContext(ctx).Where("ics_id = ?", wantIcsSlip).First(&icsRow).Error; err != nil {
		t.Fatalf("ICS row for slip %q: %v", wantIcsSlip, err)
	}
	// 3 seeded rows existed, so the tag counter starts at 4.
	if wantTag := wantIcsSlip + " 4"; icsRow.InventoryId != wantTag {
		t.Fatalf("ICS tag: expected %q, got %q", wantTag, icsRow.InventoryId)
	}

	// 3) Zero-quantity item: master row is still created, no tag rows.
	var icsCountBefore int64
	if err := db.WithContext(ctx).Model(&models.IcsRecord{}).Count(&icsCountBefore).Error; err != nil {
		t.Fatalf("count ICS rows: %v", err)
	}

	result, err = models.CreatePpeEntries(ctx, []models.NewPpeEntry{lineItem("100", 0)})
	if err != nil {
		t.Fatalf("CreatePpeEntries (zero quantity): %v", err)
	}
	if result.Entries != 1 || result.Tags != 0 {
		t.Fatalf("zero-quantity ingest result: expected 1 entry / 0 tags, got %+v", result)
	}

	var masterCount int64
	if err := db.WithContext(ctx).Model(&models.PpeEntry{}).Count(&masterCount).Error; err != nil {
		t.Fatalf("count masters: %v", err)
	}
	if masterCount != 3 {
		t.Fatalf("expected 3 master rows after zero-quantity ingest, got %d", masterCount)
	}

	var icsCountAfter int64
	if err := db.WithContext(ctx).Model(&models.IcsRecord{}).Count(&icsCountAfter).Error; err != nil {
		t.Fatalf("count ICS rows: %v", err)
	}
	if icsCountAfter != icsCountBefore {
		t.Fatalf("zero-quantity item created tag rows: %d -> %d", icsCountBefore, icsCountAfter)
	}

	// 4) Resubmission is not idempotent: the same batch creates a fresh
	// master with the next slip number.
	if _, err := models.CreatePpeEntries(ctx, []models.NewPpeEntry{lineItem("50000", 2)}); err != nil {
		t.Fatalf("CreatePpeEntries (resubmission): %v", err)
	}
	var parSlips []string
	if err := db.WithContext(ctx).Model(&models.ParRecord{}).Distinct("par_id").Pluck("par_id", &parSlips).Error; err != nil {
		t.Fatalf("distinct PAR slips: %v", err)
	}
	if len(parSlips) != 2 {
		t.Fatalf("expected 2 distinct PAR slips after resubmission, got %v", parSlips)
	}

	// 5) Mixed batch: every line item gets exactly quantity-many tags, and
	// tags never collide across concurrently ingested items.
	var preMasters int64
	if err := db.WithContext(ctx).Model(&models.PpeEntry{}).Count(&preMasters).Error; err != nil {
		t.Fatalf("count masters: %v", err)
	}

	batch := []models.NewPpeEntry{
		lineItem("60000", 3),
		lineItem("2500", 2),
		lineItem("120000", 1),
	}
	result, err = models.CreatePpeEntries(ctx, batch)
	if err != nil {
		t.Fatalf("CreatePpeEntries (mixed batch): %v", err)
	}
	if result.Entries != 3 || result.Tags != 6 {
		t.Fatalf("mixed batch result: expected 3 entries / 6 tags, got %+v", result)
	}

	for i, item := range batch {
		itemId := preMasters + int64(i) + 1
		var entry models.PpeEntry
		if err := db.WithContext(ctx).Where("item_id = ?", itemId).First(&entry).Error; err != nil {
			t.Fatalf("master for item_id %d: %v", itemId, err)
		}

		var tagCount int64
		if item.TotalCost.GreaterThan(decimal.NewFromInt(49999)) {
			if err := db.WithContext(ctx).Model(&models.ParRecord{}).Where("item_id = ?", itemId).Count(&tagCount).Error; err != nil {
				t.Fatalf("count PAR tags for item %d: %v", itemId, err)
			}
		} else {
			if err := db.WithContext(ctx).Model(&models.IcsRecord{}).Where("item_id = ?", itemId).Count(&tagCount).Error; err != nil {
				t.Fatalf("count ICS tags for item %d: %v", itemId, err)
			}
		}
		if tagCount != int64(item.Quantity) {
			t.Fatalf("item %d: expected %d tags, got %d", itemId, item.Quantity, tagCount)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("assets-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("assets-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=assets_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
