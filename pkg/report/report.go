package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/yudhasubki/spinlock/pkg/stress"
	"gopkg.in/guregu/null.v4"
)

type Run struct {
	Id          uuid.UUID   `db:"id" json:"id"`
	Workload    string      `db:"workload" json:"workload"`
	Workers     int         `db:"workers" json:"workers"`
	Iterations  int         `db:"iterations" json:"iterations"`
	Acquired    int64       `db:"acquired" json:"acquired"`
	Expected    int64       `db:"expected" json:"expected"`
	Counter     int64       `db:"counter" json:"counter"`
	TryFailures int64       `db:"try_failures" json:"try_failures"`
	Violations  int64       `db:"violations" json:"violations"`
	StartedAt   time.Time   `db:"started_at" json:"started_at"`
	FinishedAt  time.Time   `db:"finished_at" json:"finished_at"`
	Error       null.String `db:"error" json:"error"`
}

type Runs []Run

// FromReport converts the outcome of stress.Run into a storable row.
func FromReport(report stress.Report, err error) Run {
	run := Run{
		Id:          report.Id,
		Workload:    report.Workload,
		Workers:     report.Workers,
		Iterations:  report.Iterations,
		Acquired:    report.Acquired,
		Expected:    report.Expected,
		Counter:     report.Counter,
		TryFailures: report.TryFailures,
		Violations:  report.Violations,
		StartedAt:   report.StartedAt.UTC(),
		FinishedAt:  report.FinishedAt.UTC(),
	}
	if err != nil {
		run.Error = null.StringFrom(err.Error())
	}
	return run
}

func (r Run) Failed() bool {
	return r.Error.Valid
}

type Filter struct {
	Workload []string
	Limit    int
}

func (f Filter) Filter(separator string) (string, map[string]interface{}) {
	var (
		clauses = make([]string, 0)
		args    = make(map[string]interface{})
	)

	if len(f.Workload) > 0 {
		clauses = append(clauses, "workload IN (:workload)")
		args["workload"] = f.Workload
	}

	clause := ""
	for i, c := range clauses {
		if i > 0 {
			clause += " " + separator + " "
		}
		clause += c
	}

	return clause, args
}
