// Package service loads the village dataset and holds the per-page map views.
package service

import "time"

// State is the lifecycle state of the dataset load.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// DatasetInfo describes the loaded dataset.
type DatasetInfo struct {
	State     State     `json:"state" enum:"loading,ready,failed" doc:"Load state" example:"ready"`
	Source    string    `json:"source" doc:"File path or URL the topology was read from" example:"desa.json"`
	Object    string    `json:"object,omitempty" doc:"Topology object the features were taken from" example:"desa"`
	Regions   int       `json:"regions" doc:"Number of regions" example:"650"`
	Size      string    `json:"size,omitempty" doc:"Human-readable document size" example:"1.2 MB"`
	Error     string    `json:"error,omitempty" doc:"Load failure, when state is failed"`
	StartedAt time.Time `json:"startedAt" doc:"When the load started"`
	LoadedAt  time.Time `json:"loadedAt,omitzero" doc:"When the load finished"`
}

// RegionSummary is one row of the region listing.
type RegionSummary struct {
	ID       string  `json:"id" doc:"Region ID (feature index)" example:"0"`
	Name     string  `json:"name" doc:"Village name, or - when absent" example:"Bambu"`
	District string  `json:"district" doc:"Kecamatan" example:"Mamuju"`
	Regency  string  `json:"regency" doc:"Kabupaten" example:"Mamuju"`
	Area     float64 `json:"area" doc:"Area, 0 when absent" example:"12.5"`
	AreaText string  `json:"areaText" doc:"Locale-formatted area, or - when absent" example:"12,5 km²"`
}

// Event is a dataset lifecycle notification.
type Event struct {
	State   State
	Object  string
	Regions int
	Err     error
}
