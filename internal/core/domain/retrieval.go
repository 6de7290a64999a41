package domain

// RetrievedChunk is a vector store hit with enough metadata to cite it.
type RetrievedChunk struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Page       int     `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Answer is the synthesized response plus its citations. Sources holds
// distinct "source page N" labels in retrieval rank order.
type Answer struct {
	Text    string           `json:"text"`
	Sources []string         `json:"sources"`
	Chunks  []RetrievedChunk `json:"chunks,omitempty"`
}

type EvalCase struct {
	Question string `yaml:"question" json:"question"`
	Expected string `yaml:"expected" json:"expected"`
}

type EvalResult struct {
	Case   EvalCase `json:"case"`
	Answer string   `json:"answer"`
	Passed bool     `json:"passed"`
}

type EvalReport struct {
	Results []EvalResult `json:"results"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
}
