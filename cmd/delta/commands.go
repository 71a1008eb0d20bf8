package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/unisdr/delta/pkg/causal"
	"github.com/unisdr/delta/pkg/contracts"
	"github.com/unisdr/delta/pkg/store"
	"github.com/unisdr/delta/pkg/workflow"
)

const shutdownTimeout = 10 * time.Second

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withApp parses common flags, builds the app and runs fn.
func withApp(fs *flag.FlagSet, common *commonFlags, args []string, stderr io.Writer, fn func(ctx context.Context, a *app) int) int {
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, *common, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() {
		shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.close(shutdown)
	}()
	return fn(ctx, a)
}

func runMigrateCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)

	return withApp(fs, &common, args, stderr, func(ctx context.Context, a *app) int {
		if err := a.store.Migrate(ctx); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintln(stdout, "schema up to date")
		return 0
	})
}

func runImportCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		common commonFlags
		file   string
	)
	common.register(fs)
	fs.StringVar(&file, "file", "", "JSON array of approvable records (REQUIRED)")

	return withApp(fs, &common, args, stderr, func(ctx context.Context, a *app) int {
		if file == "" {
			_, _ = fmt.Fprintln(stderr, "Error: --file is required")
			return 2
		}
		data, err := os.ReadFile(file)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		var recs []contracts.ApprovableRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: parse %s: %v\n", file, err)
			return 2
		}
		for _, r := range recs {
			if err := a.store.InsertRecord(ctx, r); err != nil {
				_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
				return 2
			}
		}
		_, _ = fmt.Fprintf(stdout, "imported %d records\n", len(recs))
		return 0
	})
}

// applyReport is the JSON printed by apply.
type applyReport struct {
	Record         contracts.ApprovableRecord       `json:"record"`
	PreviousStatus contracts.ApprovalStatus         `json:"previous_status"`
	Effects        []string                         `json:"effects,omitempty"`
	Parent         *parentReport                    `json:"parent,omitempty"`
	Assignments    []contracts.ValidationAssignment `json:"assignments,omitempty"`
	Notified       []string                         `json:"notified,omitempty"`
}

type parentReport struct {
	ChildID          string `json:"child_id"`
	PreviousParentID string `json:"previous_parent_id,omitempty"`
	ParentID         string `json:"parent_id,omitempty"`
}

func newParentReport(c causal.Change) *parentReport {
	return &parentReport{ChildID: c.ChildID, PreviousParentID: c.PreviousParentID, ParentID: c.ParentID}
}

func runApplyCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		common      commonFlags
		actor       actorFlags
		entityType  string
		entityID    string
		action      string
		payload     string
		payloadFile string
	)
	common.register(fs)
	actor.register(fs)
	fs.StringVar(&entityType, "type", "", "Entity type: hazardous_event, disaster_event or disaster_records (REQUIRED)")
	fs.StringVar(&entityID, "id", "", "Entity id (REQUIRED)")
	fs.StringVar(&action, "action", "", "Workflow action, e.g. submit-validation")
	fs.StringVar(&payload, "payload", "", "Request payload JSON")
	fs.StringVar(&payloadFile, "payload-file", "", "Read the request payload from a file")

	return withApp(fs, &common, args, stderr, func(ctx context.Context, a *app) int {
		if entityType == "" || entityID == "" {
			_, _ = fmt.Fprintln(stderr, "Error: --type and --id are required")
			return 2
		}
		who, err := actor.resolve(a.cfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}

		raw := []byte(payload)
		if payloadFile != "" {
			if raw, err = os.ReadFile(payloadFile); err != nil {
				_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
				return 2
			}
		}
		p, err := workflow.DecodePayload(raw)
		if err != nil {
			return reportError(stderr, err)
		}

		res, err := a.orchestrator().Apply(ctx, workflow.Request{
			EntityID:   entityID,
			EntityType: contracts.EntityType(entityType),
			Action:     contracts.Action(action),
			Actor:      who,
			Payload:    p,
		})
		if err != nil {
			return reportError(stderr, err)
		}

		report := applyReport{
			Record:         res.Record,
			PreviousStatus: res.PreviousStatus,
			Assignments:    res.Assignments,
			Notified:       res.Notified,
		}
		if res.Decision != nil {
			for _, e := range res.Decision.Effects {
				report.Effects = append(report.Effects, e.String())
			}
		}
		if res.Parent != nil {
			report.Parent = newParentReport(*res.Parent)
		}
		return writeJSON(stdout, stderr, report)
	})
}

func runSetParentCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("set-parent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		common commonFlags
		actor  actorFlags
		child  string
		parent string
	)
	common.register(fs)
	actor.register(fs)
	fs.StringVar(&child, "child", "", "Hazardous event id whose parent changes (REQUIRED)")
	fs.StringVar(&parent, "parent", "", "New parent id; empty removes the parent")

	return withApp(fs, &common, args, stderr, func(ctx context.Context, a *app) int {
		if child == "" {
			_, _ = fmt.Fprintln(stderr, "Error: --child is required")
			return 2
		}
		who, err := actor.resolve(a.cfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		var parentID *string
		if p := strings.TrimSpace(parent); p != "" {
			parentID = &p
		}
		change, err := a.orchestrator().SetParent(ctx, who, child, parentID)
		if err != nil {
			return reportError(stderr, err)
		}
		return writeJSON(stdout, stderr, newParentReport(change))
	})
}

type auditOutput struct {
	OK          bool                `json:"ok"`
	Edges       int                 `json:"edges"`
	Cycles      [][]string          `json:"cycles,omitempty"`
	MultiParent map[string][]string `json:"multi_parent,omitempty"`
}

func runAuditCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("audit-graph", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)

	return withApp(fs, &common, args, stderr, func(ctx context.Context, a *app) int {
		var edges []contracts.CausalEdge
		err := a.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			var err error
			edges, err = tx.AllEdges(ctx)
			return err
		})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		report := causal.Audit(edges)
		if code := writeJSON(stdout, stderr, auditOutput{
			OK:          report.OK(),
			Edges:       report.Edges,
			Cycles:      report.Cycles,
			MultiParent: report.MultiParent,
		}); code != 0 {
			return code
		}
		if !report.OK() {
			a.logger.WarnContext(ctx, "causal graph integrity violations",
				"cycles", len(report.Cycles), "multi_parent", len(report.MultiParent))
			return 1
		}
		return 0
	})
}

func runHealthCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)

	return withApp(fs, &common, args, stderr, func(ctx context.Context, a *app) int {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := a.store.Ping(ctx); err != nil {
			_, _ = fmt.Fprintf(stderr, "Health check failed: database: %v\n", err)
			return 1
		}
		if a.redis != nil {
			if err := a.redis.Ping(ctx); err != nil {
				_, _ = fmt.Fprintf(stderr, "Health check failed: redis: %v\n", err)
				return 1
			}
		}
		_, _ = fmt.Fprintln(stdout, "OK")
		return 0
	})
}

// reportError prints err and maps it to an exit code: validation failures
// exit 1, everything else 2.
func reportError(stderr io.Writer, err error) int {
	if errors.Is(err, contracts.ErrValidation) {
		_, _ = fmt.Fprintf(stderr, "Rejected: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	return 2
}

func writeJSON(stdout, stderr io.Writer, v interface{}) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}
