package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------
// Scripted stand-in for the provider fetch worker. It speaks the real worker
// protocol (request on stdin until close, diagnostics on stderr, payload on
// stdout), so full sync runs can be exercised without provider credentials.
//
// Scenarios:
//
//	ok       normal run, records or a grid artifact
//	error    diagnostics error marker, nonzero exit
//	hang     never finishes, exercises the deadline kill
//	garbage  undecodable stdout payload
//
// -----------------------------------------------------------------------------

func main() {
	scenario := flag.String("scenario", "ok", "ok, error, hang or garbage")
	delay := flag.Duration("delay", 25*time.Millisecond, "pause between progress lines")
	flag.Parse()

	// 1. Read the request, sent as one JSON object followed by stream close
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error::cannot read request::%v\n", err)
		os.Exit(1)
	}
	var req models.MWorkerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		fmt.Fprintf(os.Stderr, "error::bad request payload::%v\n", err)
		os.Exit(1)
	}

	// 2. Announce, then walk the progress ladder
	fmt.Fprintln(os.Stderr, "Status: INITIATED")
	for _, pct := range []int{0, 25, 50, 75} {
		fmt.Fprintf(os.Stderr, "Progress: %d\n", pct)
		time.Sleep(*delay)
	}

	// 3. Play out the requested scenario
	switch *scenario {
	case "hang":
		select {}
	case "error":
		fmt.Fprintln(os.Stderr, "error::provider rejected the request::access denied")
		os.Exit(1)
	case "garbage":
		fmt.Fprintln(os.Stdout, "this is not a record stream")
	default:
		if req.Subcommand == "grid" {
			if err := emitGrid(&req); err != nil {
				fmt.Fprintf(os.Stderr, "error::grid staging failed::%v\n", err)
				os.Exit(1)
			}
		} else {
			if err := emitRecords(&req); err != nil {
				fmt.Fprintf(os.Stderr, "error::record streaming failed::%v\n", err)
				os.Exit(1)
			}
		}
	}

	fmt.Fprintln(os.Stderr, "Progress: 100")
}

// -----------------------------------------------------------------------------

// emitRecords streams synthetic stage and flow records covering the
// requested window, in the provider's concatenated-object framing.
func emitRecords(req *models.MWorkerRequest) error {
	after, err := time.Parse(models.ISOFormat, req.After)
	if err != nil {
		return fmt.Errorf("bad After bound %q", req.After)
	}
	before, err := time.Parse(models.ISOFormat, req.Before)
	if err != nil {
		return fmt.Errorf("bad Before bound %q", req.Before)
	}

	encoder := json.NewEncoder(os.Stdout)
	records := []struct {
		code       string
		siteNumber string
		name       string
		step       time.Duration
	}{
		{"00065", "02198500", "SAVANNAH RIVER AT CLYO", 15 * time.Minute},
		{"00060", "02197000", "SAVANNAH RIVER AT AUGUSTA", time.Hour},
	}

	for i, spec := range records {
		record := models.MSiteRecord{
			Code:       spec.code,
			SiteNumber: spec.siteNumber,
			Name:       spec.name,
		}
		for ts, n := after, 0; !ts.After(before) && n < 500; ts, n = ts.Add(spec.step), n+1 {
			record.Times = append(record.Times, models.MFlexTime{Time: ts})
			record.Values = append(record.Values, 10.0+5.0*math.Sin(float64(n)/12.0)+float64(i))
		}
		if err := encoder.Encode(&record); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// emitGrid stages a placeholder artifact file and reports it the way the
// real worker does, as "id::path" on stdout.
func emitGrid(req *models.MWorkerRequest) error {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("grids-%s-%d.dss", req.ID, time.Now().Unix()))
	if err := os.WriteFile(path, []byte("placeholder grid payload\n"), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s::%s\n", req.ID, path)
	return nil
}
