package model

// Table names used by the table source.
const (
	TableAnswerLog  = "ANSWER_LOG"
	TableQuestionDB = "QUESTION_DB"
	TablePassageDB  = "PASSAGE_DB"
	TableStudentDB  = "STUDENT_DB"
)

// SessionsPerWeek is the number of sessions in one week. Session numbers above it
// are global (counted from the start of the course).
const SessionsPerWeek = 5

var canonicalHeaders = map[string][]string{
	TableAnswerLog: {
		"log_id", "date", "student_id", "week", "session", "q_slot", "is_wrong", "answer_value",
		"question_id", "passage_group", "area", "q_type", "inweek", "score", "book",
	},
	TableQuestionDB: {"Week", "Session", "Q_Slot", "Type", "Area", "PassageGroup", "Book"},
	TablePassageDB:  {"Book", "Week", "Session", "PassageGroup", "Genre"},
	TableStudentDB:  {"Name", "ID"},
}

// CanonicalHeader returns the header a new table is created with, or nil for tables
// without a fixed layout.
func CanonicalHeader(table string) []string {
	h, ok := canonicalHeaders[table]
	if !ok {
		return nil
	}
	return append([]string(nil), h...)
}

// TableNames lists the tables with a canonical layout.
func TableNames() []string {
	return []string{TableAnswerLog, TableQuestionDB, TablePassageDB, TableStudentDB}
}
