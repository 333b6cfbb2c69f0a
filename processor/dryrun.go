package processor

import "drivefetch/models"

// DryRunReport lists the files a dry-run would have downloaded
type DryRunReport struct {
	Items models.Collection
}

// CollectDryRun keeps the planned entries of outcomes in traversal order
func CollectDryRun(outcomes []Outcome) *DryRunReport {
	report := &DryRunReport{Items: models.Collection{}}
	for _, o := range outcomes {
		if o.State == StatePlanned {
			report.Items = append(report.Items, o.Entry)
		}
	}
	return report
}

// Count returns the number of files that would be downloaded
func (r *DryRunReport) Count() int {
	return len(r.Items)
}

// Empty reports whether nothing would be downloaded
func (r *DryRunReport) Empty() bool {
	return len(r.Items) == 0
}

func (r *DryRunReport) String() string {
	return r.Items.String()
}
