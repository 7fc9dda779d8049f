package trackerapi

// Reserved placeholder syllabus for students without assigned content.
const (
	ContactSyllabusID   = "contact"
	ContactSyllabusName = "Contact Syllabus"
	ContactRegisterID   = "contact_register"
)

// SyllabusInfo is the catalog metadata of a syllabus
type SyllabusInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Topic struct {
	ID          string `json:"id"`
	ChapterName string `json:"chapter_name"`
	TopicName   string `json:"topic_name"`
}

type Variant struct {
	Name   string  `json:"name"`
	Topics []Topic `json:"topics"`
}

// Syllabus is the full topic tree of one syllabus
type Syllabus struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Variants    []Variant `json:"variants"`
}

// TopicIDs returns every topic id in variant order.
func (s *Syllabus) TopicIDs() []string {
	var ids []string
	for _, v := range s.Variants {
		for _, t := range v.Topics {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

type OverallProgress struct {
	Percentage float64 `json:"percentage"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
}

type TopicState struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
}

// ProgressSnapshot is the completion state of one student on one syllabus
type ProgressSnapshot struct {
	Topics          []TopicState     `json:"topics"`
	OverallProgress *OverallProgress `json:"overall_progress"`
}

// TopicUpdate is the payload of POST /update-topic
type TopicUpdate struct {
	StudentEmail string `json:"student_email"`
	StudentName  string `json:"student_name"`
	SyllabusID   string `json:"syllabus_id"`
	TopicID      string `json:"topic_id"`
	IsCompleted  bool   `json:"is_completed"`
}

// RosterEntry is one student x syllabus progress row of the teacher roster
type RosterEntry struct {
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	SyllabusName       string  `json:"syllabus_name"`
	ProgressPercentage float64 `json:"progress_percentage"`
	CompletedCount     int     `json:"completed_count"`
	TotalTopics        int     `json:"total_topics"`
	LastUpdated        string  `json:"last_updated,omitempty"`
}

type Assignment struct {
	StudentEmail string `json:"student_email" validate:"required,email"`
	SyllabusID   string `json:"syllabus_id" validate:"required"`
}

type Backup struct {
	Name    string `json:"name"`
	Created string `json:"created,omitempty"`
	Size    int64  `json:"size,omitempty"`
}

type writeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type dataEnvelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}
