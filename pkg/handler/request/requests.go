package request

// One request per sub-command. Every output path defaults to the file name the
// original pipeline used in the working directory.

// Inputs may be three-column exports or eggNOG-mapper tables.
type COGAnalysisRequest struct {
	Inputs     []string `json:"inputs"`
	CountsOut  string   `json:"counts_out"`
	GroupedOut string   `json:"grouped_out"`
	MatrixOut  string   `json:"matrix_out"` // written only with several inputs
}

// Enrichment covers both cog_enrichment_fisher and go_enrichment_fisher.
type EnrichmentRequest struct {
	Input       string   `json:"input"`
	Interest    []string `json:"interest"`
	Reference   []string `json:"reference"`
	GroupsFile  string   `json:"groups_file"`
	Sheet       string   `json:"sheet"`
	Alternative string   `json:"alternative"`
	Out         string   `json:"out"`
}

type GOTermCountRequest struct {
	TermList   string      `json:"term_list"`
	Inputs     []string    `json:"inputs"`
	Sep        string      `json:"sep"`
	Header     TableHeader `json:"header"`
	Column     int         `json:"col"`
	SplitRegex string      `json:"split_regex"`
	IgnoreCase bool        `json:"ignore_case"`
	NoCollapse bool        `json:"no_collapse_spaces"`
	Out        string      `json:"out"`
}

type ModuleCompletenessRequest struct {
	KOFiles         []string            `json:"ko_files"`
	NoCache         bool                `json:"no_cache"`
	OnLookupFailure LookupFailurePolicy `json:"on_lookup_failure"`
	TermsOut        string              `json:"terms_out"`
	BinaryOut       string              `json:"binary_out"`
	PercentageOut   string              `json:"percentage_out"`
}

type DifferentialRequest struct {
	BinaryIn      string `json:"binary_in"`
	PercentageIn  string `json:"percentage_in"`
	BinaryOut     string `json:"binary_out"`
	PercentageOut string `json:"percentage_out"`
}

type HeatmapRequest struct {
	BinaryIn     string `json:"binary_in"`
	PercentageIn string `json:"percentage_in"`
	Out          string `json:"out"`
	HTMLOut      string `json:"html_out"` // empty disables the HTML page
}

type PanarooRequest struct {
	Input     string `json:"input"`
	Genome    string `json:"genome"`
	MetaCols  int    `json:"meta_cols"`
	MatrixOut string `json:"matrix_out"`
	CoreOut   string `json:"core_out"`
	OutDir    string `json:"out_dir"` // <genome>_unique_genes.tsv goes here
}

type UpSetRequest struct {
	Matrix  string `json:"matrix"`
	Genome  string `json:"genome"`
	Top     int    `json:"top"`
	Title   string `json:"title"`
	Out     string `json:"out"`
	HTMLOut string `json:"html_out"`
}
