package site

// StageName is a strongly-typed identifier for a build stage. All canonical
// stages are declared as constants here for compile-time safety.
type StageName string

// Canonical stage names.
const (
	StagePrepareOutput  StageName = "prepare_output"
	StageScanSource     StageName = "scan_source"
	StageRenderArticles StageName = "render_articles"
	StageEmbedArticles  StageName = "embed_articles"
	StageCopyAssets     StageName = "copy_assets"
	StageWriteIndex     StageName = "write_index"
	StageWriteFeed      StageName = "write_feed"
)
