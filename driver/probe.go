package driver

import (
	"errors"
	"fmt"

	"uartbl/logger"
	"uartbl/protocol"
)

// ProbeResult is the outcome of one probe burst. Got is the echoed length,
// or -1 when nothing came back.
type ProbeResult struct {
	Size int   `json:"size"`
	Got  int   `json:"got"`
	Err  error `json:"-"`
}

// OK reports whether the device echoed the burst size.
func (r ProbeResult) OK() bool {
	return r.Err == nil
}

// String renders the result the way the probe reports it to an operator.
func (r ProbeResult) String() string {
	if r.OK() {
		return fmt.Sprintf("success: size = %d", r.Size)
	}
	return "error: " + r.Err.Error()
}

// ProbeReport collects the results of a probe run in the order tested.
type ProbeReport struct {
	Results []ProbeResult
}

// Failed returns the results that did not match.
func (r ProbeReport) Failed() []ProbeResult {
	var failed []ProbeResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// ProbeTimeouts sends, for each size n, a burst of n protocol.ProbeFill
// bytes, waits protocol.SettleDelay and expects the first byte of a single
// read to equal n.
//
// By default the run stops at the first mismatch and returns it as a
// *ProbeMismatchError. With WithAggregate(true) every size is tested and
// the mismatches are returned joined. Transport failures always stop the
// run.
func ProbeTimeouts(t *Transport, sizes []int, opts ...Option) (ProbeReport, error) {
	cfg := newConfig(opts)
	var report ProbeReport
	var mismatches []error

	for _, n := range sizes {
		res, err := probeOnce(t, n, cfg)
		if err != nil {
			return report, fmt.Errorf("probe size %d: %w", n, err)
		}

		report.Results = append(report.Results, res)
		if cfg.ProbeHook != nil {
			cfg.ProbeHook(res)
		}

		if res.Err != nil {
			logger.Error("Probe size %d failed: %v", n, res.Err)
			if !cfg.Aggregate {
				return report, res.Err
			}
			mismatches = append(mismatches, res.Err)
			continue
		}
		logger.Info("Probe size %d ok", n)
	}

	return report, errors.Join(mismatches...)
}

func probeOnce(t *Transport, n int, cfg Config) (ProbeResult, error) {
	if err := t.Write(protocol.BuildProbe(n)); err != nil {
		return ProbeResult{}, err
	}

	cfg.Sleep(protocol.SettleDelay)

	record, err := t.ReadRecord()
	if err != nil {
		return ProbeResult{}, err
	}

	res := ProbeResult{Size: n, Got: -1}
	if len(record) == 0 {
		res.Err = &ProbeMismatchError{Size: n, Got: -1, Err: ErrReceiveTimeout}
		return res, nil
	}

	res.Got = int(record[0])
	if res.Got != n {
		res.Err = &ProbeMismatchError{Size: n, Got: res.Got}
	}
	return res, nil
}
