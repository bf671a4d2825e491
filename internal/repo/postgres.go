package repo

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"

    "github.com/michaelbontyes/dev-board-v2/internal/config"
    "github.com/michaelbontyes/dev-board-v2/internal/domain"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

// ---- Raw snapshot mirror ----
// The mirror keeps what was fetched, not what was computed: sprints, work
// items, their change events and worklogs. Report output is never persisted.

func (r *Repository) UpsertSprint(ctx context.Context, sp domain.Sprint) error {
    const q = `
        INSERT INTO sprints(id, name, state, start_date, end_date, goal, fetched_at)
        VALUES($1,$2,$3,$4,$5,$6,now())
        ON CONFLICT(id) DO UPDATE SET
            name=EXCLUDED.name,
            state=EXCLUDED.state,
            start_date=EXCLUDED.start_date,
            end_date=EXCLUDED.end_date,
            goal=EXCLUDED.goal,
            fetched_at=now()`
    _, err := r.db.Pool.Exec(ctx, q, sp.ID, sp.Name, sp.State, sp.StartDate, sp.EndDate, sp.Goal)
    return err
}

func (r *Repository) UpsertWorkItem(ctx context.Context, it domain.WorkItem) (int64, error) {
    const q = `
        INSERT INTO work_items(key, type, assignee, status, created_at_src, done_at, estimate_seconds, updated_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,now())
        ON CONFLICT(key) DO UPDATE SET
            type=EXCLUDED.type,
            assignee=EXCLUDED.assignee,
            status=EXCLUDED.status,
            created_at_src=EXCLUDED.created_at_src,
            done_at=EXCLUDED.done_at,
            estimate_seconds=EXCLUDED.estimate_seconds,
            updated_at=now()
        RETURNING id`
    var id int64
    row := r.db.Pool.QueryRow(ctx, q, it.Key, it.Type, it.Assignee, it.Status, it.CreatedAt, it.DoneAt, it.EstimateSeconds)
    if err := row.Scan(&id); err != nil { return 0, err }
    return id, nil
}

func (r *Repository) LinkSprintItems(ctx context.Context, sprintID int64, itemIDs []int64) error {
    if len(itemIDs) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO sprint_items(sprint_id, item_id) VALUES($1,$2)
        ON CONFLICT (sprint_id, item_id) DO NOTHING`
    for _, id := range itemIDs {
        batch.Queue(q, sprintID, id)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range itemIDs { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

// BulkInsertChangeEvents flattens each change event into one row per field
// change, keeping the actor and timestamp shared by the group.
func (r *Repository) BulkInsertChangeEvents(ctx context.Context, itemID int64, history []domain.ChangeEvent) error {
    if len(history) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO change_events(item_id, actor, field, from_val, to_val, at)
        VALUES($1,$2,$3,$4,$5,$6)
        ON CONFLICT (item_id, field, from_val, to_val, at) DO NOTHING`
    n := 0
    for _, ev := range history {
        for _, ch := range ev.Changes {
            batch.Queue(q, itemID, ev.Author, ch.Field, ch.From, ch.To, ev.At)
            n++
        }
    }
    if n == 0 { return nil }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for i := 0; i < n; i++ { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) BulkInsertWorklogs(ctx context.Context, itemID int64, wl []domain.WorklogEntry) error {
    if len(wl) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO worklogs(item_id, author, started_at, seconds)
        VALUES($1,$2,$3,$4)
        ON CONFLICT (item_id, author, started_at) DO NOTHING`
    for _, x := range wl {
        batch.Queue(q, itemID, x.Author, x.StartedAt, x.Seconds)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range wl { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

// ---- Job runs ----

func (r *Repository) StartJobRun(ctx context.Context, board string) (int64, error) {
    const q = `INSERT INTO job_runs(started_at, board, success) VALUES(now(), $1, false) RETURNING id`
    var id int64
    if err := r.db.Pool.QueryRow(ctx, q, board).Scan(&id); err != nil { return 0, err }
    return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, sprintsAnalyzed, itemsScanned int, success bool, errStr string) error {
    const q = `UPDATE job_runs SET finished_at=now(), sprints_analyzed=$2, items_scanned=$3, success=$4, error=$5 WHERE id=$1`
    _, err := r.db.Pool.Exec(ctx, q, id, sprintsAnalyzed, itemsScanned, success, errStr)
    return err
}

type LastRun struct {
    StartedAt       time.Time  `json:"started_at"`
    FinishedAt      *time.Time `json:"finished_at"`
    Board           string     `json:"board"`
    SprintsAnalyzed int        `json:"sprints_analyzed"`
    ItemsScanned    int        `json:"items_scanned"`
    Success         bool       `json:"success"`
    Error           string     `json:"error"`
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
    const q = `SELECT started_at, finished_at, coalesce(board,''),
        coalesce(sprints_analyzed,0), coalesce(items_scanned,0),
        coalesce(success,false), coalesce(error,'')
        FROM job_runs ORDER BY id DESC LIMIT 1`
    row := r.db.Pool.QueryRow(ctx, q)
    lr := &LastRun{}
    if err := row.Scan(&lr.StartedAt, &lr.FinishedAt, &lr.Board, &lr.SprintsAnalyzed, &lr.ItemsScanned, &lr.Success, &lr.Error); err != nil {
        return nil, err
    }
    return lr, nil
}
