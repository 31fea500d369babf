package model

// Area labels assigned to questions.
const (
	// AreaReading covers comprehension questions (slot prefix R).
	AreaReading = "Reading"
	// AreaVocabulary covers vocabulary questions (slot prefix V).
	AreaVocabulary = "Vocabulary"
	// Unknown is used for any dimension that could not be determined.
	Unknown = "Unknown"
)

// QuestionMeta is the catalog entry for one question slot.
type QuestionMeta struct {
	Type            string `json:"type"`
	Area            string `json:"area"`
	Passage         string `json:"passage"`
	RawPassageGroup string `json:"raw_passage_group,omitempty"`
}

// MetricBucket aggregates one grouping value.
type MetricBucket struct {
	Name     string  `json:"name"`
	Total    int     `json:"total"`
	Wrong    int     `json:"wrong"`
	Accuracy float64 `json:"accuracy"`
}

// Overall holds the headline accuracies.
type Overall struct {
	Accuracy        float64 `json:"accuracy"`
	ReadingAccuracy float64 `json:"reading_accuracy"`
	VocabAccuracy   float64 `json:"vocab_accuracy"`
}

// Comparison contrasts literature against non-literature reading passages.
type Comparison struct {
	Literature    MetricBucket `json:"literature"`
	NonLiterature MetricBucket `json:"non_literature"`
}

// WrongAnswer is one entry of the student's wrong-answer list.
type WrongAnswer struct {
	Week    int    `json:"week"`
	Session string `json:"session"`
	Slot    string `json:"slot"`
	Type    string `json:"type"`
	Area    string `json:"area"`
	Passage string `json:"passage"`
	Date    string `json:"date,omitempty"`
}

// SummaryResponse is the analytics result for one student and week range.
type SummaryResponse struct {
	StudentID      string         `json:"student_id"`
	FromWeek       int            `json:"from_week"`
	ToWeek         int            `json:"to_week"`
	Book           string         `json:"book,omitempty"`
	TotalQuestions int            `json:"total_questions"`
	TotalWrong     int            `json:"total_wrong"`
	MatchedRows    int            `json:"matched_rows"`
	Overall        Overall        `json:"overall"`
	Comparison     Comparison     `json:"comparison"`
	ByQType        []MetricBucket `json:"by_q_type"`
	ByArea         []MetricBucket `json:"by_area"`
	ByPassageGroup []MetricBucket `json:"by_passage_group"`
	ByWeek         []MetricBucket `json:"by_week"`
	WrongList      []WrongAnswer  `json:"wrong_list"`
}

// Weakness is the question type most worth working on.
type Weakness struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	ImpactFactor float64 `json:"impact_factor"`
}

// Prescription lists study actions for each phase of solving a passage.
type Prescription struct {
	Pre    string `json:"pre"`
	During string `json:"during"`
	Post   string `json:"post"`
}

// Strength is the best performing category and how to build on it.
type Strength struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

// DiagnosisResult is the weakness and strength report derived from a summary.
type DiagnosisResult struct {
	Weakness     Weakness     `json:"weakness"`
	Causes       []string     `json:"causes"`
	Prescription Prescription `json:"prescription"`
	Strength     Strength     `json:"strength"`
}

// Insight bundles a summary with its diagnosis.
type Insight struct {
	Summary   *SummaryResponse `json:"summary"`
	Diagnosis *DiagnosisResult `json:"diagnosis"`
	CoachNote string           `json:"coach_note,omitempty"`
}

// Blueprint lists the question slots of one session.
type Blueprint struct {
	Week      int      `json:"week"`
	Session   string   `json:"session"`
	Book      string   `json:"book,omitempty"`
	Questions []string `json:"questions"`
}

// RecordRequest submits the wrong slots a student marked for one session.
type RecordRequest struct {
	StudentID  string   `json:"student_id"`
	Week       int      `json:"week"`
	Session    string   `json:"session"`
	Book       string   `json:"book,omitempty"`
	WrongSlots []string `json:"wrong_list"`
}

// RecordResult reports how many log rows were appended.
type RecordResult struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// Student is one roster entry.
type Student struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// SlotStat counts how many wrong answers a slot collected in a session.
type SlotStat struct {
	Slot  string `json:"slot"`
	Count int    `json:"count"`
	Type  string `json:"type"`
	Area  string `json:"area"`
}
