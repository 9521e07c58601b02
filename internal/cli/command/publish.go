package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/resonance-go/internal/cli/output"
	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/core/service"
)

// maxRecordBytes bounds a record read from a file or stdin.
const maxRecordBytes = 1 << 20

// PublishRow is one line of publish output.
type PublishRow struct {
	File   string `json:"file"`
	RKey   string `json:"rkey"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty" table:"wide"`
}

// PublishCommand returns the publish command.
func PublishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Aliases:   []string{"pub"},
		Usage:     "Publish JSON records as the stored account",
		ArgsUsage: "FILE... | -",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Collection NSID to write to",
				Value: domain.DefaultCollection,
			},
		},
		Action: publishAction,
	}
}

func publishAction(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one FILE, or - for stdin, is required")
	}

	records := make([]json.RawMessage, len(files))
	for i, name := range files {
		if records[i], err = readRecord(c.App.Reader, name); err != nil {
			return err
		}
	}

	cfg := service.DefaultConfig()
	cfg.Publish.Collection = c.String("collection")
	core, err := rt.Authenticated(c.Context, cfg)
	if err != nil {
		return err
	}

	var bar *output.ProgressBar
	if len(files) > 1 && rt.Interactive() {
		bar = output.NewProgressBar(rt.ErrOut, "Publishing", len(files))
	}

	rows := make([]PublishRow, len(files))
	failed := 0
	for i, name := range files {
		rows[i] = PublishRow{File: name, Status: "published"}
		rkey, err := core.Publisher.Publish(c.Context, records[i])
		if err != nil {
			failed++
			rows[i].Status = "failed"
			rows[i].Error = domain.UserMessage(err)
			rt.Logger.Debug("publish failed", "file", name, "error", err)
			if bar != nil {
				bar.Failed()
			}
			continue
		}
		rows[i].RKey = rkey
		if bar != nil {
			bar.Succeed()
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if err := rt.Print(rows); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records failed to publish", failed, len(files))
	}
	return nil
}

// readRecord reads one JSON object from name, or from stdin for "-".
func readRecord(stdin io.Reader, name string) (json.RawMessage, error) {
	var r io.Reader
	if name == "-" {
		r = stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxRecordBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxRecordBytes {
		return nil, fmt.Errorf("%s: record larger than %d bytes", name, maxRecordBytes)
	}
	if !domain.IsJSONObject(data) {
		return nil, fmt.Errorf("%s: record must be a JSON object", name)
	}
	return data, nil
}
