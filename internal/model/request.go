package model

// JobRequest is a conversion job submitted over Kafka or HTTP. Zero values
// of Format and Workers fall back to defaults.
type JobRequest struct {
	Input     string `json:"input"`
	Output    string `json:"output,omitempty"`
	Format    string `json:"format,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
	Workers   int    `json:"workers,omitempty"`
}

// JobConfig converts the request into a validated run configuration,
// taking Format and Workers from defaults when omitted.
func (r JobRequest) JobConfig(defaults JobConfig) (JobConfig, error) {
	job := JobConfig{
		InputRoot:  r.Input,
		OutputRoot: r.Output,
		Format:     defaults.Format,
		Overwrite:  r.Overwrite,
		Recursive:  r.Recursive,
		Workers:    defaults.Workers,
	}
	if r.Format != "" {
		f, err := ParseFormat(r.Format)
		if err != nil {
			return JobConfig{}, err
		}
		job.Format = f
	}
	if r.Workers > 0 {
		job.Workers = r.Workers
	}

	return job, job.Validate()
}
