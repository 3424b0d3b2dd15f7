package models

import (
	"math"
	"time"
)

// millisThreshold: значения timestamp выше этого порога считаем миллисекундами
const millisThreshold = 1e12

// BoundingBox представляет один прямоугольник, возвращённый сервисом детекции.
// Person-детекции и motion-регионы имеют одинаковую форму, но приходят
// в разных полях DetectionRecord и никогда не смешиваются.
type BoundingBox struct {
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
	Confidence float64   `json:"confidence"`
	Label      string    `json:"label"`
}

// DetectionRecord is the latest annotation payload for one stream. A newer
// record fully replaces the previous one, field-by-field merging never happens.
type DetectionRecord struct {
	Timestamp  float64       `json:"timestamp"`
	Detections []BoundingBox `json:"detections"`
	Motion     []BoundingBox `json:"motion"`
}

// EmptyRecord returns a record with no boxes, stamped with the current time.
// Substituted when a stream has never produced a successful detection fetch.
func EmptyRecord() DetectionRecord {
	return DetectionRecord{
		Timestamp:  float64(time.Now().UnixNano()) / float64(time.Second),
		Detections: []BoundingBox{},
		Motion:     []BoundingBox{},
	}
}

// Time converts the record timestamp to wall-clock time. The service reports
// fractional unix seconds, but some sources emit milliseconds; anything above
// millisThreshold is treated as milliseconds.
func (r DetectionRecord) Time() time.Time {
	ts := r.Timestamp
	if ts >= millisThreshold {
		ts /= 1000
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// StreamDescriptor описывает один поток из ростера внешнего сервиса.
// Ростер заменяется целиком при каждом обновлении, частичного merge нет.
type StreamDescriptor struct {
	ID               string  `json:"id"`
	URL              string  `json:"url"`
	Name             string  `json:"name"`
	Running          bool    `json:"running"`
	FPS              float64 `json:"fps"`
	DetectionEnabled bool    `json:"detection_enabled"`
	MotionEnabled    bool    `json:"motion_enabled"`
	IsLocalFile      bool    `json:"is_local_file"`

	// Только для локальных файлов
	Progress     *float64 `json:"progress,omitempty"`
	TotalFrames  *int64   `json:"total_frames,omitempty"`
	CurrentFrame *int64   `json:"current_frame,omitempty"`
}

// Stats is the aggregate counters payload from /api/stats.
type Stats struct {
	TotalStreams  int                `json:"total_streams"`
	ActiveStreams int                `json:"active_streams"`
	Streams       []StreamDescriptor `json:"streams"`
}

// DetectionEvent is published to Kafka when a fetched record contains
// person detections.
type DetectionEvent struct {
	StreamID      string    `json:"stream_id"`
	Persons       int       `json:"persons"`
	MotionRegions int       `json:"motion_regions"`
	TimeStamp     time.Time `json:"TimeStamp"`
}

// UpstreamConfig is the detection/motion tuning exposed by the service on
// /api/config. Updates are partial: the service merges the posted sections
// into its current config and pushes them to every running stream.
type UpstreamConfig struct {
	Detection DetectionSettings `json:"detection"`
	Motion    MotionSettings    `json:"motion"`
}

type DetectionSettings struct {
	Enabled    bool    `json:"enabled"`
	ModelPath  string  `json:"model_path"`
	Confidence float64 `json:"confidence"`
}

type MotionSettings struct {
	Enabled     bool `json:"enabled"`
	Threshold   int  `json:"threshold"`
	ContourArea int  `json:"contour_area"`
}

// Persons counts the person detections in the record.
func (r DetectionRecord) Persons() int {
	n := 0
	for _, d := range r.Detections {
		if d.Label == "person" {
			n++
		}
	}
	return n
}
