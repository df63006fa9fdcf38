package domain

// Chunk is a contiguous slice of a document's text, the atomic unit of
// retrieval. ChunkID is zero-based and strictly increasing per document in
// text order. Offsets are rune offsets into the document's extracted text.
type Chunk struct {
	DocName     string `json:"doc_name"`
	ChunkID     int    `json:"chunk_id"`
	Page        int    `json:"page,omitempty"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Stage names the retrieval stage that produced a candidate's score. Scores
// from different stages are not numerically comparable.
type Stage string

const (
	StageVector   Stage = "vector"
	StageHybrid   Stage = "hybrid"
	StageReranked Stage = "reranked"
	StageMMR      Stage = "mmr"
)

type RetrievalCandidate struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
	Stage Stage   `json:"stage"`

	// Relevance is the query similarity behind Score. The two are equal for
	// every stage except diversity selection, where Score is the selection
	// objective and can go negative for a relevant but redundancy-penalized
	// chunk.
	Relevance float64 `json:"-"`
}

// VectorHit is a nearest-neighbor result from the vector index. The stored
// vector is carried so diversity selection can compute pairwise similarity
// without re-embedding.
type VectorHit struct {
	Chunk  Chunk
	Score  float64
	Vector []float32
}

// LexicalHit is a term-frequency match from the in-process lexical index.
type LexicalHit struct {
	Chunk Chunk
	Score float64
}

// Citation references a chunk that was part of the context handed to the
// answer generator. Citations are derived from retrieval candidates only,
// never synthesized.
type Citation struct {
	Doc     string  `json:"doc"`
	ChunkID int     `json:"chunk_id"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type Answer struct {
	Text    string     `json:"answer"`
	Sources []Citation `json:"sources"`
}

// RerankingStats compares stage-1 vector ordering with the stage-2
// cross-encoder ordering of a two-stage retrieval request.
type RerankingStats struct {
	InitialCandidates     int     `json:"initial_candidates"`
	FinalResults          int     `json:"final_results"`
	RerankingChangedOrder bool    `json:"reranking_changed_order"`
	OriginalTopScore      float64 `json:"original_top_score"`
	RerankedTopScore      float64 `json:"reranked_top_score"`
	OriginalTop3Chunks    []int   `json:"original_top_3_chunks"`
	RerankedTop3Chunks    []int   `json:"reranked_top_3_chunks"`
}

type RerankedAnswer struct {
	Answer
	Stats RerankingStats `json:"reranking_stats"`
}

type IndexStats struct {
	Collection string `json:"collection"`
	ChunkCount int    `json:"chunk_count"`
}
