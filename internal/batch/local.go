package batch

import (
	"context"
	"path/filepath"

	"autotrans/internal/format"
	"autotrans/internal/logging"
	"autotrans/internal/naming"
	"autotrans/internal/report"
	"autotrans/internal/services"
	"autotrans/internal/transcode"
)

// Local transcodes one source folder into output as f without touching the
// catalog or the ledger.
func (c *Controller) Local(ctx context.Context, input, output string, f format.Format) (*transcode.Transcode, error) {
	c.logger.Info("preparing and validating transcode", logging.String("source", input))
	tc, err := c.engine.Prepare(ctx, input, []naming.Target{{Format: f, Dir: output}}, c.resolver.Provider())
	if err != nil {
		return nil, err
	}

	if path, ok := c.writeReport([]report.Section{Section(filepath.Base(input), tc)}); ok && c.console != nil {
		proceed, err := c.console.Confirm("Spectrogram report generated at " + path + ". Continue (y/n)? ")
		if err != nil {
			return nil, err
		}
		if !proceed {
			return nil, services.Wrap(services.ErrAborted, "local", "review", "spectrogram review declined", nil)
		}
	}

	c.logger.Info("transcoding", logging.String("output", output))
	if err := tc.Execute(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("transcode successful", logging.String("output", output))
	return tc, nil
}

// TestResult is the validation outcome of one folder.
type TestResult struct {
	Folder    string
	Transcode *transcode.Transcode
}

// Test validates folders without producing output and reports each
// folder's global resample decision. The first invalid folder fails the
// run.
func (c *Controller) Test(ctx context.Context, folders []string) ([]TestResult, error) {
	results := make([]TestResult, 0, len(folders))
	sections := make([]report.Section, 0, len(folders))
	for _, folder := range folders {
		c.logger.Info("testing", logging.String("folder", folder))
		tc, err := c.engine.Discover(ctx, folder)
		if err != nil {
			return results, err
		}
		if tc.Global == transcode.Mixed {
			c.logger.Info("validation successful, mixed resample required", logging.String("folder", folder))
		} else {
			c.logger.Info("validation successful", logging.String("folder", folder), logging.String("global_resample", tc.Global.String()))
		}
		results = append(results, TestResult{Folder: folder, Transcode: tc})
		sections = append(sections, Section(filepath.Base(folder), tc))
	}

	if path, ok := c.writeReport(sections); ok && c.console != nil {
		if _, err := c.console.Ask("Check spectrograms at " + path + " and press ENTER to continue.\n"); err != nil {
			return results, err
		}
	}
	return results, nil
}
