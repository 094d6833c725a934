package model

import (
	"encoding/json"
	"time"
)

// CertificateVersion is the document schema version stamped on every certificate.
const CertificateVersion = "1.0.0"

// Tier selects the certificate depth.
type Tier string

const (
	TierNormal Tier = "normal"
	TierPro    Tier = "pro"
)

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	return t == TierNormal || t == TierPro
}

// CertificateStatus is the lifecycle state of a certificate record.
type CertificateStatus string

const (
	CertificateStatusPending    CertificateStatus = "pending"
	CertificateStatusProcessing CertificateStatus = "processing"
	CertificateStatusDone       CertificateStatus = "done"
	CertificateStatusError      CertificateStatus = "error"
)

// SignalState is the valence of a signal.
type SignalState string

const (
	SignalPositive  SignalState = "positive"
	SignalNeutral   SignalState = "neutral"
	SignalSensitive SignalState = "sensitive"
	SignalNegative  SignalState = "negative"
)

// Severity grades a strategic risk.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Certificate is the persisted certificate record. Exactly one of PropertyID
// and SpaceID is set.
type Certificate struct {
	ID           string            `json:"id"`
	PropertyID   *string           `json:"property_id,omitempty"`
	SpaceID      *string           `json:"space_id,omitempty"`
	Tier         Tier              `json:"tier"`
	Status       CertificateStatus `json:"status"`
	Version      string            `json:"version"`
	Document     json.RawMessage   `json:"certificate_json,omitempty"`
	SourceInputs json.RawMessage   `json:"source_inputs_json,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// CertificateUpdate is a partial update of a certificate record.
type CertificateUpdate struct {
	Status       *CertificateStatus
	Document     json.RawMessage
	SourceInputs json.RawMessage
	ErrorMessage *string
	CompletedAt  *time.Time
}

// CertificateFilter narrows certificate listings.
type CertificateFilter struct {
	PropertyID string
	SpaceID    string
	Tier       Tier
	Status     CertificateStatus
	Limit      int
}

// Meta identifies a certificate document.
type Meta struct {
	ID          string    `json:"id"`
	Tier        Tier      `json:"tier"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Barometer is the coarse state and trajectory classification.
type Barometer struct {
	State       string `json:"state"`
	Trajectory  string `json:"trajectory"`
	OneSentence string `json:"one_sentence"`
}

// Capital holds the generating, preserving and draining buckets.
type Capital struct {
	Generating []string `json:"generating"`
	Preserving []string `json:"preserving"`
	Draining   []string `json:"draining"`
}

// Signal is a short named observation.
type Signal struct {
	Name             string      `json:"name"`
	State            SignalState `json:"state"`
	ShortExplanation string      `json:"short_explanation"`
}

// ChecklistItem is one in-person verification step.
type ChecklistItem struct {
	Item     string `json:"item"`
	Category string `json:"category"`
}

// PropertyIdentity describes the property on a property certificate.
type PropertyIdentity struct {
	Title        string   `json:"title"`
	City         string   `json:"city"`
	PropertyType string   `json:"property_type"`
	Sqft         *int     `json:"sqft"`
	Beds         *int     `json:"beds"`
	Baths        *float64 `json:"baths"`
}

// LocationContext repeats the categorical location scores.
type LocationContext struct {
	Walkability         string `json:"walkability"`
	DailyConvenience    string `json:"daily_convenience"`
	TrafficExposure     string `json:"traffic_exposure"`
	NeighbourhoodEnergy string `json:"neighbourhood_energy"`
}

// RealfeelEnvironment summarizes light, noise and lifestyle.
type RealfeelEnvironment struct {
	NaturalLightSummary string `json:"natural_light_summary"`
	NoiseSummary        string `json:"noise_summary"`
	LifestyleSummary    string `json:"lifestyle_summary"`
}

// VisitStrategy recommends when to visit.
type VisitStrategy struct {
	BestVisitTime string `json:"best_visit_time"`
	Why           string `json:"why"`
}

// SilenceAndDrift lists what a listing does not say.
type SilenceAndDrift struct {
	MissingElements         []string `json:"missing_elements"`
	HiddenRisks             []string `json:"hidden_risks"`
	OverlookedOpportunities []string `json:"overlooked_opportunities"`
}

// StrategicRisk is one graded risk with a mitigation.
type StrategicRisk struct {
	Risk       string   `json:"risk"`
	Severity   Severity `json:"severity"`
	Mitigation string   `json:"mitigation"`
}

// StrategicRisks wraps the risk list.
type StrategicRisks struct {
	Risks []StrategicRisk `json:"risks"`
}

// PropertyCertificate is the document produced by the ingestion pipeline.
// Pro-only sections are nil on normal certificates.
type PropertyCertificate struct {
	Meta                  Meta                `json:"meta"`
	PropertyIdentity      PropertyIdentity    `json:"property_identity"`
	ExperienceBarometer   Barometer           `json:"experience_barometer"`
	ExperienceCapital     Capital             `json:"experience_capital"`
	Signals               []Signal            `json:"signals"`
	LocationContext       LocationContext     `json:"location_context"`
	RealfeelEnvironment   RealfeelEnvironment `json:"realfeel_environment"`
	VerificationChecklist []ChecklistItem     `json:"verification_checklist"`
	EditorialSummary      string              `json:"editorial_summary"`

	VisitStrategy   *VisitStrategy   `json:"visit_strategy,omitempty"`
	SilenceAndDrift *SilenceAndDrift `json:"silence_and_drift,omitempty"`
	StrategicRisks  *StrategicRisks  `json:"strategic_risks,omitempty"`
}

// SpaceIdentity describes the space on a space certificate.
type SpaceIdentity struct {
	Title        string  `json:"title"`
	City         string  `json:"city"`
	PropertyType string  `json:"property_type"`
	AreaM2       float64 `json:"area_m2"`
	Floor        string  `json:"floor"`
}

// PeerGravity positions a space against its segment.
type PeerGravity struct {
	ComparableSegment string `json:"comparable_segment"`
	PerceivedPosition string `json:"perceived_position"`
	Explanation       string `json:"explanation"`
}

// ExperienceTension lists trade-offs and dependencies.
type ExperienceTension struct {
	Compensations []string `json:"compensations"`
	Dependencies  []string `json:"dependencies"`
}

// Evidence lists observations backing the certificate.
type Evidence struct {
	PhotoObservations   []string `json:"photo_observations"`
	ListingObservations []string `json:"listing_observations"`
}

// SpaceCertificate is the document produced from static space attributes.
type SpaceCertificate struct {
	Meta                Meta          `json:"meta"`
	PropertyIdentity    SpaceIdentity `json:"property_identity"`
	ExperienceBarometer Barometer     `json:"experience_barometer"`
	ExperienceCapital   Capital       `json:"experience_capital"`
	Signals             []Signal      `json:"signals"`
	EditorialSummary    string        `json:"editorial_summary"`

	SilenceAndDrift   *SilenceAndDrift   `json:"silence_and_drift,omitempty"`
	PeerGravity       *PeerGravity       `json:"peer_gravity,omitempty"`
	ExperienceTension *ExperienceTension `json:"experience_tension,omitempty"`
	StrategicRisks    *StrategicRisks    `json:"strategic_risks,omitempty"`
	Evidence          *Evidence          `json:"evidence,omitempty"`
}

// CertificateReady announces a completed certificate.
type CertificateReady struct {
	CertificateID string    `json:"certificate_id"`
	PropertyID    string    `json:"property_id,omitempty"`
	SpaceID       string    `json:"space_id,omitempty"`
	Tier          Tier      `json:"tier"`
	Version       string    `json:"version"`
	CompletedAt   time.Time `json:"completed_at"`
}
