package result

import "github.com/thoth-station/resultstore/internal/config"

// Result types of the stores shipped with this package.
const (
	AnalysisResultType         = "analysis"
	SolverResultType           = "solver"
	AdviserResultType          = "adviser"
	ProvenanceResultType       = "provenance"
	DependencyMonkeyResultType = "dependency-monkey"
	InspectionResultType       = "inspection"
	PackageExtractResultType   = "package-extract"
)

// ResultTypes lists every known result type.
var ResultTypes = []string{
	AnalysisResultType,
	SolverResultType,
	AdviserResultType,
	ProvenanceResultType,
	DependencyMonkeyResultType,
	InspectionResultType,
	PackageExtractResultType,
}

// NewAnalysisResultsStore creates the store for container image analyses.
func NewAnalysisResultsStore(cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	return New(AnalysisResultType, cfg, opts...)
}

// NewSolverResultsStore creates the store for dependency solver runs.
func NewSolverResultsStore(cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	return New(SolverResultType, cfg, opts...)
}

// NewAdviserResultsStore creates the store for adviser recommendations.
func NewAdviserResultsStore(cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	return New(AdviserResultType, cfg, opts...)
}

// NewProvenanceResultsStore creates the store for provenance checks.
func NewProvenanceResultsStore(cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	return New(ProvenanceResultType, cfg, opts...)
}

// NewDependencyMonkeyResultsStore creates the store for dependency monkey runs.
func NewDependencyMonkeyResultsStore(cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	return New(DependencyMonkeyResultType, cfg, opts...)
}

// NewInspectionResultsStore creates the store for inspection runs.
func NewInspectionResultsStore(cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	return New(InspectionResultType, cfg, opts...)
}

// NewPackageExtractResultsStore creates the store for package-extract runs.
func NewPackageExtractResultsStore(cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	return New(PackageExtractResultType, cfg, opts...)
}
