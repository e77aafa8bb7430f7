package datarecording

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/tebeka/atexit"
)

// ClickHouseScheme prefixes the locations handled by the ClickHouse
// recorder.
const ClickHouseScheme = "clickhouse://"

// ClickHouseConfig describes how to reach a ClickHouse server.
type ClickHouseConfig struct {
	Host      string
	Port      int
	Database  string
	Username  string
	Password  string
	BatchSize int
}

// ParseClickHouseURL parses
// clickhouse://[user[:password]@]host[:port]/database[?username=&password=].
func ParseClickHouseURL(location string) (ClickHouseConfig, error) {
	cfg := ClickHouseConfig{Port: 9000, Username: "default"}

	u, err := url.Parse(location)
	if err != nil {
		return cfg, err
	}

	if u.Scheme != "clickhouse" {
		return cfg, fmt.Errorf("not a ClickHouse URL: %s", location)
	}

	cfg.Host = u.Hostname()
	if cfg.Host == "" {
		return cfg, fmt.Errorf("missing host in %s", location)
	}

	if p := u.Port(); p != "" {
		cfg.Port, err = strconv.Atoi(p)
		if err != nil {
			return cfg, fmt.Errorf("bad port in %s: %w", location, err)
		}
	}

	cfg.Database = strings.Trim(u.Path, "/")
	if cfg.Database == "" {
		cfg.Database = "default"
	}

	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}

	q := u.Query()
	if v := q.Get("username"); v != "" {
		cfg.Username = v
	}

	if v := q.Get("password"); v != "" {
		cfg.Password = v
	}

	if v := q.Get("batch_size"); v != "" {
		cfg.BatchSize, err = strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("bad batch_size in %s: %w", location, err)
		}
	}

	return cfg, nil
}

type clickHouseTable struct {
	structType reflect.Type
	rows       [][]any
}

// clickHouseRecorder writes tables into ClickHouse with batched inserts.
type clickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*clickHouseTable
	tableOrder []string
	entryCount int
	closed     bool
}

// NewClickHouseRecorder connects to a ClickHouse server. It panics if the
// server cannot be reached.
func NewClickHouseRecorder(cfg ClickHouseConfig) DataRecorder {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: cfg.BatchSize,
		tables:    make(map[string]*clickHouseTable),
	}

	atexit.Register(func() { r.Flush() })

	return r
}

// Open creates a recorder for location: a clickhouse:// URL or an SQLite
// database path.
func Open(location string) (DataRecorder, error) {
	if !strings.HasPrefix(location, ClickHouseScheme) {
		return New(location), nil
	}

	cfg, err := ParseClickHouseURL(location)
	if err != nil {
		return nil, err
	}

	return NewClickHouseRecorder(cfg), nil
}

func clickHouseColumnType(kind reflect.Kind) (string, error) {
	switch kind {
	case reflect.Bool:
		return "Bool", nil
	case reflect.Int8:
		return "Int8", nil
	case reflect.Int16:
		return "Int16", nil
	case reflect.Int32:
		return "Int32", nil
	case reflect.Int, reflect.Int64:
		return "Int64", nil
	case reflect.Uint8:
		return "UInt8", nil
	case reflect.Uint16:
		return "UInt16", nil
	case reflect.Uint32:
		return "UInt32", nil
	case reflect.Uint, reflect.Uint64:
		return "UInt64", nil
	case reflect.Float32:
		return "Float32", nil
	case reflect.Float64:
		return "Float64", nil
	case reflect.String:
		return "String", nil
	default:
		return "", fmt.Errorf("unsupported kind %s", kind)
	}
}

func clickHouseCreateTableSQL(tableName string, sampleEntry any) (string, error) {
	t := reflect.TypeOf(sampleEntry)
	if t.Kind() != reflect.Struct {
		return "", fmt.Errorf("entry must be a struct, got %T", sampleEntry)
	}

	columns := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		colType, err := clickHouseColumnType(field.Type.Kind())
		if err != nil {
			return "", fmt.Errorf("field %s: %w", field.Name, err)
		}

		columns = append(columns, field.Name+" "+colType)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) "+
		"ENGINE = MergeTree()\nORDER BY tuple()",
		tableName, strings.Join(columns, ",\n\t")), nil
}

// normalizeClickHouseValue widens the platform-sized integers to the column
// types chosen by clickHouseColumnType.
func normalizeClickHouseValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case uint:
		return uint64(x)
	default:
		return v
	}
}

func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	createSQL, err := clickHouseCreateTableSQL(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	if _, exists := r.tables[tableName]; !exists {
		r.tableOrder = append(r.tableOrder, tableName)
	}

	r.tables[tableName] = &clickHouseTable{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()

	table, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		r.mu.Unlock()
		panic(fmt.Sprintf("entry of type %T does not match table %s",
			entry, tableName))
	}

	values := structs.Values(entry)
	for i, v := range values {
		values[i] = normalizeClickHouseValue(v)
	}

	table.rows = append(table.rows, values)
	r.entryCount++
	full := r.entryCount >= r.batchSize

	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

func (r *clickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.tableOrder...)
}

// Flush writes all batched rows to ClickHouse using bulk inserts.
func (r *clickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 || r.closed {
		return
	}

	ctx := context.Background()

	for _, tableName := range r.tableOrder {
		table := r.tables[tableName]
		if len(table.rows) == 0 {
			continue
		}

		r.flushTable(ctx, tableName, table)
	}

	r.entryCount = 0
}

func (r *clickHouseRecorder) flushTable(
	ctx context.Context,
	tableName string,
	table *clickHouseTable,
) {
	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
	}

	for _, row := range table.rows {
		err = batch.Append(row...)
		if err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}

	table.rows = table.rows[:0]
}

func (r *clickHouseRecorder) Close() error {
	r.Flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	return r.conn.Close()
}
