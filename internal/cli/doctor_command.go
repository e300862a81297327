package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"yt-tutor-console/internal/backend"
	"yt-tutor-console/internal/config"
	"yt-tutor-console/internal/store"
)

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type doctorResult struct {
	OK     bool          `json:"ok"`
	Checks []doctorCheck `json:"checks"`
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load()
	result := doctor(cfg)

	if *jsonOut {
		return printJSON(result)
	}
	for _, c := range result.Checks {
		mark := "ok"
		if !c.OK {
			mark = "FAIL"
		}
		fmt.Printf("[%s] %-16s %s\n", mark, c.Name, c.Message)
	}
	if !result.OK {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Println("all checks passed")
	return nil
}

// doctor runs the preflight checks concurrently; each check fills its own
// slot so the report order is stable.
func doctor(cfg config.Config) doctorResult {
	checks := make([]doctorCheck, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		client := backend.NewClient(cfg.BackendURL)
		if err := client.Ping(ctx); err != nil {
			checks[0] = doctorCheck{Name: "backend", Message: backend.UserMessage(err)}
			return nil
		}
		checks[0] = doctorCheck{Name: "backend", OK: true, Message: "reachable at " + cfg.BackendURL}
		return nil
	})

	g.Go(func() error {
		st, err := store.Open(cfg.CachePath)
		if err != nil {
			checks[1] = doctorCheck{Name: "cache", Message: err.Error()}
			return nil
		}
		defer st.Close()
		checks[1] = doctorCheck{Name: "cache", OK: true, Message: "writable at " + cfg.CachePath}
		return nil
	})

	_ = g.Wait()

	result := doctorResult{OK: true, Checks: checks}
	for _, c := range checks {
		if !c.OK {
			result.OK = false
		}
	}
	return result
}
