package models

// ScanStatus represents the current state of a scan or job
type ScanStatus string

const (
	StatusPending  ScanStatus = "pending"
	StatusRunning  ScanStatus = "running"
	StatusComplete ScanStatus = "complete"
	StatusError    ScanStatus = "error"
)

// Terminal reports whether no further transition can leave s.
func (s ScanStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// JobKind identifies which operation a job tracks
type JobKind string

const (
	KindScan           JobKind = "scan"
	KindPortScan       JobKind = "ports"
	KindHistoricalURLs JobKind = "urls"
)

// Source attribution used when more than one producer reported a hostname
const SourceCombined = "combined"
