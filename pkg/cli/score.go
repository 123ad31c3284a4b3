package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/mchmarny/defaultrisk/pkg/config"
	"github.com/mchmarny/defaultrisk/pkg/feature"
	"github.com/mchmarny/defaultrisk/pkg/model"
	"github.com/mchmarny/defaultrisk/pkg/net"
	"github.com/mchmarny/defaultrisk/pkg/scoring"
	urfave "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	scoreConcurrencyDefault = 4
	predictPath             = "/predict"
)

var (
	fileFlag = &urfave.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "CSV file with one client per row",
		Required: true,
	}

	urlFlag = &urfave.StringFlag{
		Name:  "url",
		Usage: "Base URL of a running scoring server (optional, scores locally when not set)",
	}

	tokenFlag = &urfave.StringFlag{
		Name:    "token",
		Usage:   "Bearer token sent to the scoring server (optional)",
		Sources: urfave.EnvVars("DEFAULTRISK_TOKEN"),
	}

	concurrencyFlag = &urfave.IntFlag{
		Name:  "concurrency",
		Usage: "Number of rows scored in parallel",
		Value: scoreConcurrencyDefault,
	}

	scoreCmd = &urfave.Command{
		Name:   "score",
		Usage:  "Score every row of a CSV file",
		Action: cmdScore,
		Flags: []urfave.Flag{
			fileFlag,
			urlFlag,
			tokenFlag,
			concurrencyFlag,
		},
	}
)

// ScoreResult is the outcome for a single CSV row. Error is set instead of
// the prediction when the row was rejected.
type ScoreResult struct {
	Row          int      `json:"row" yaml:"row"`
	ProbaDefault *float64 `json:"proba_default,omitempty" yaml:"proba_default,omitempty"`
	Prediction   *int     `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// rowScorer scores one record.
type rowScorer func(ctx context.Context, record map[string]any) (model.Prediction, error)

func cmdScore(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	records, err := readCSV(cmd.String(fileFlag.Name))
	if err != nil {
		return err
	}

	var scorer rowScorer
	if u := strings.TrimSpace(cmd.String(urlFlag.Name)); u != "" {
		scorer = remoteScorer(strings.TrimRight(u, "/")+predictPath, net.GetOAuthClient(ctx, cmd.String(tokenFlag.Name)))
	} else {
		svc, err := newService(ctx, cfg.Config)
		if err != nil {
			return err
		}
		scorer = localScorer(svc, cfg.Contract)
	}

	results, err := scoreRecords(ctx, records, scorer, int(cmd.Int(concurrencyFlag.Name)))
	if err != nil {
		return err
	}

	return encode(os.Stdout, results)
}

// readCSV loads the CSV into one map per row keyed by column name.
func readCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, df.Err)
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("%s: %w", path, scoring.ErrNoRecords)
	}
	return df.Maps(), nil
}

// localScorer scores against the in-process model using the same record
// contract as the server's JSON endpoint.
func localScorer(svc *scoring.Service, contract string) rowScorer {
	return func(ctx context.Context, record map[string]any) (model.Prediction, error) {
		var (
			preds []model.Prediction
			err   error
		)
		if contract == config.ContractRaw {
			preds, err = svc.ScoreRaw(ctx, []feature.Lookup{feature.MapLookup(record)})
		} else {
			preds, err = svc.ScoreEncoded(ctx, []map[string]any{record})
		}
		if err != nil {
			var re *scoring.RowError
			if errors.As(err, &re) {
				return model.Prediction{}, re.Err
			}
			return model.Prediction{}, err
		}
		return preds[0], nil
	}
}

func remoteScorer(url string, client *http.Client) rowScorer {
	return func(ctx context.Context, record map[string]any) (model.Prediction, error) {
		var preds []model.Prediction
		if err := net.PostJSON(ctx, client, url, record, &preds); err != nil {
			return model.Prediction{}, err
		}
		if len(preds) != 1 {
			return model.Prediction{}, fmt.Errorf("expected 1 prediction, got %d", len(preds))
		}
		return preds[0], nil
	}
}

// scoreRecords fans the records out to scorer with at most limit in flight.
// Rejected rows keep their error in place; any other failure aborts.
func scoreRecords(ctx context.Context, records []map[string]any, scorer rowScorer, limit int) ([]*ScoreResult, error) {
	if len(records) == 0 {
		return nil, scoring.ErrNoRecords
	}
	if limit < 1 {
		limit = 1
	}

	results := make([]*ScoreResult, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, rec := range records {
		g.Go(func() error {
			res := &ScoreResult{Row: i}
			p, err := scorer(gctx, rec)
			if err != nil {
				msg, ok := rejection(err)
				if !ok {
					return fmt.Errorf("row %d: %w", i, err)
				}
				res.Error = msg
			} else {
				res.ProbaDefault = &p.ProbaDefault
				res.Prediction = &p.Prediction
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// rejection reports whether err rejects a single row and returns its
// message.
func rejection(err error) (string, bool) {
	var (
		de *feature.DomainError
		se *feature.SchemaError
		st *net.StatusError
	)

	switch {
	case errors.As(err, &de):
		return de.Error(), true
	case errors.As(err, &se):
		return se.Error(), true
	case errors.As(err, &st) && st.StatusCode >= http.StatusBadRequest && st.StatusCode < http.StatusInternalServerError:
		var resp errorResponse
		if json.Unmarshal([]byte(st.Body), &resp) == nil && resp.Error != "" {
			return resp.Error, true
		}
		return st.Body, true
	default:
		return "", false
	}
}
