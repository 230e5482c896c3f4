package rundao

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
	"github.com/savaki/gox/slicex"
)

const latest = "latest"

// PK represents a DynamoDB partition key in format {image}/{mode}
// Example: djl-serving/nightly
type PK string

// NewPK creates a partition key from image and mode
func NewPK(image, mode string) PK {
	return PK(fmt.Sprintf("%s/%s", image, mode))
}

// ParsePK parses a partition key into its image and mode components
func ParsePK(pk PK) (image, mode string, err error) {
	s := string(pk)
	idx := strings.LastIndex(s, "/")
	if idx <= 0 || idx == len(s)-1 {
		return "", "", fmt.Errorf("invalid PK format: %s, expected {image}/{mode}", s)
	}
	return s[:idx], s[idx+1:], nil
}

// String returns the string representation of the partition key
func (pk PK) String() string {
	return string(pk)
}

// ID represents a run ID in format {image}/{mode}:{ksuid}
// Example: djl-serving/nightly:2HFj3kLmNoPqRsTuVwXy
type ID string

func (id ID) String() string {
	return string(id)
}

// ParseID parses a run ID into its partition key (pk) and sort key (sk) components
func ParseID(id ID) (pk PK, sk string, err error) {
	s := string(id)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid run ID format: %s, expected {image}/{mode}:{ksuid}", s)
	}
	return PK(parts[0]), parts[1], nil
}

// NewID constructs an ID from partition key and sort key
func NewID(pk PK, sk string) ID {
	return ID(fmt.Sprintf("%s:%s", pk, sk))
}

// RunStatus represents the current status of a publish run
type RunStatus string

const (
	RunStatusPending    RunStatus = "PENDING"
	RunStatusInProgress RunStatus = "IN_PROGRESS"
	RunStatusSuccess    RunStatus = "SUCCESS"
	RunStatusFailed     RunStatus = "FAILED"
)

// Record represents a publish run record in DynamoDB
type Record struct {
	PK           PK        `ddb:"hash" dynamodbav:"pk"`  // {image}/{mode} - DynamoDB partition key
	SK           string    `ddb:"range" dynamodbav:"sk"` // KSUID - DynamoDB sort key
	ID           ID        `dynamodbav:"id,omitempty"`   // ID is only used for latest entries
	Image        string    `dynamodbav:"image,omitempty"`
	Mode         string    `dynamodbav:"mode,omitempty"` // nightly or release
	Version      string    `dynamodbav:"version,omitempty"`
	Tag          string    `dynamodbav:"tag,omitempty"` // selected image tag
	PushEnabled  bool      `dynamodbav:"push_enabled,omitempty"`
	WheelKey     string    `dynamodbav:"wheel_key,omitempty"` // S3 key of the uploaded wheel
	Status       RunStatus `dynamodbav:"status,omitempty"`
	ExecutionArn *string   `dynamodbav:"execution_arn,omitempty"` // Step Functions execution ARN
	ErrorMsg     *string   `dynamodbav:"error_msg,omitempty"`
	CreatedAt    int64     `dynamodbav:"created_at,omitempty"`
	FinishedAt   *int64    `dynamodbav:"finished_at,omitempty"`
	UpdatedAt    int64     `dynamodbav:"updated_at,omitempty"`
}

// GetID returns the full run ID in format: {image}/{mode}:{ksuid}
func GetID(r Record) ID {
	if r.ID != "" {
		return r.ID
	}
	return NewID(r.PK, r.SK)
}

// TableName derives the runs table name for an environment
func TableName(env string) string {
	return fmt.Sprintf("djl-publisher-runs-%s", env)
}

// CreateInput contains the fields needed to create a new run record
type CreateInput struct {
	Image       string // Image repository name
	Mode        string // nightly or release
	SK          string // KSUID sort key
	Version     string // Resolved version (may be empty for nightly)
	Tag         string // Selected tag
	PushEnabled bool
}

// UpdateInput contains the fields that can be updated on a run record
type UpdateInput struct {
	PK       PK
	SK       string
	Status   *RunStatus
	WheelKey *string
	ErrorMsg *string
}

// DAO provides data access operations for publish run records
type DAO struct {
	db    *ddb.DDB
	table *ddb.Table
}

// New creates a new DAO instance
func New(client *dynamodb.Client, tableName string) *DAO {
	db := ddb.New(client)
	table := db.MustTable(tableName, &Record{})
	return &DAO{
		db:    db,
		table: table,
	}
}

// Create creates a new run record with initial status PENDING
func (d *DAO) Create(ctx context.Context, input CreateInput) (Record, error) {
	pk := NewPK(input.Image, input.Mode)
	now := time.Now().Unix()

	record := Record{
		PK:          pk,
		SK:          input.SK,
		Image:       input.Image,
		Mode:        input.Mode,
		Version:     input.Version,
		Tag:         input.Tag,
		PushEnabled: input.PushEnabled,
		Status:      RunStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := d.table.Put(&record).RunWithContext(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create run record: %w", err)
	}

	return record, nil
}

// Find retrieves a run record by ID
// Returns an error if not found or if there's a database error
func (d *DAO) Find(ctx context.Context, id ID) (Record, error) {
	pk, sk, err := ParseID(id)
	if err != nil {
		return Record{}, err
	}

	var record Record

	err = d.table.Get(pk.String()).
		Range(sk).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "item not found") || strings.Contains(errStr, "ItemNotFound") {
			return Record{}, fmt.Errorf("run record not found: %s", id)
		}
		return Record{}, fmt.Errorf("failed to find run record: %w", err)
	}

	// If all fields are empty, item doesn't exist
	if record.PK == "" && record.SK == "" {
		return Record{}, fmt.Errorf("run record not found: %s", id)
	}

	return record, nil
}

// Query returns all runs for a given image/mode partition key, newest first.
// KSUID sort keys are chronologically ordered, so sorting by SK descending
// is sorting by creation time descending.
func (d *DAO) Query(ctx context.Context, pk PK) ([]Record, error) {
	var records []Record

	err := d.table.Query("#PK = ?", pk.String()).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SK > records[j].SK
	})

	return records, nil
}

// QueryLatestRuns returns the latest run for each image in the given mode.
// It queries the "latest" magic records where pk=latest/{mode} and
// sk={image}/{mode}.
func (d *DAO) QueryLatestRuns(ctx context.Context, mode string) ([]Record, error) {
	pk := NewPK(latest, mode)
	var records []Record

	err := d.table.Query("#PK = ?", pk).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt > records[j].UpdatedAt
	})

	ids := slicex.Map(records, GetID)

	runs := make([]Record, 0, len(ids))
	for _, id := range ids {
		record, err := d.Find(ctx, id)
		if err != nil {
			// Skip records that are not found (may have been deleted)
			continue
		}
		runs = append(runs, record)
	}

	return runs, nil
}

// UpdateStatus updates the status of a run record and creates/updates a
// "latest" magic record. The latest record has pk=latest/{mode} and
// sk={original pk} to enable efficient queries for latest runs.
func (d *DAO) UpdateStatus(ctx context.Context, input UpdateInput) error {
	if input.Status == nil {
		return fmt.Errorf("status is required")
	}

	now := time.Now().Unix()

	update := d.table.Update(input.PK).
		Range(input.SK).
		Set("#Status = ?", string(*input.Status)).
		Set("#UpdatedAt = ?", now)

	// Set finishedAt for terminal states (SUCCESS or FAILED)
	if *input.Status == RunStatusSuccess || *input.Status == RunStatusFailed {
		update = update.Set("#FinishedAt = ?", now)
	}

	if input.WheelKey != nil {
		update = update.Set("#WheelKey = ?", *input.WheelKey)
	}

	if input.ErrorMsg != nil {
		update = update.Set("#ErrorMsg = ?", *input.ErrorMsg)
	}

	image, mode, err := ParsePK(input.PK)
	if err != nil {
		return fmt.Errorf("failed to parse PK: %w", err)
	}

	latestRecord := &Record{
		PK:        NewPK(latest, mode),
		SK:        input.PK.String(), // SK in latest record = PK from original
		ID:        NewID(input.PK, input.SK),
		Image:     image,
		Mode:      mode,
		Status:    *input.Status,
		UpdatedAt: now,
	}

	put := d.table.Put(latestRecord)

	if _, err := d.db.TransactWriteItemsWithContext(ctx, update, put); err != nil {
		return err
	}

	return nil
}

// StartExecution atomically updates a run record to IN_PROGRESS status and
// sets the execution ARN. Called when a Step Functions execution is started
// for the run.
func (d *DAO) StartExecution(ctx context.Context, pk PK, sk string, executionArn string) error {
	now := time.Now().Unix()
	status := RunStatusInProgress

	update := d.table.Update(pk.String()).
		Range(sk).
		Set("#Status = ?", string(status)).
		Set("#ExecutionArn = ?", executionArn).
		Set("#UpdatedAt = ?", now)

	image, mode, err := ParsePK(pk)
	if err != nil {
		return fmt.Errorf("failed to parse PK: %w", err)
	}

	latestRecord := &Record{
		PK:        NewPK(latest, mode),
		SK:        pk.String(),
		ID:        NewID(pk, sk),
		Image:     image,
		Mode:      mode,
		Status:    status,
		UpdatedAt: now,
	}

	put := d.table.Put(latestRecord)

	if _, err := d.db.TransactWriteItemsWithContext(ctx, update, put); err != nil {
		return fmt.Errorf("failed to start execution: %w", err)
	}

	return nil
}

// Delete removes a run record by ID
func (d *DAO) Delete(ctx context.Context, id ID) error {
	pk, sk, err := ParseID(id)
	if err != nil {
		return err
	}

	err = d.table.Delete(pk).
		Range(sk).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete run record: %w", err)
	}

	return nil
}
