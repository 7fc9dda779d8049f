package roster

// Stats summarises a filtered roster.
type Stats struct {
	TotalStudents      int     // distinct emails
	AverageProgress    float64 // mean progress over the entries, 0 when empty
	SyllabusesAssigned int     // distinct syllabus names
	CompletionRate     float64 // entries with progress over distinct students, as a percentage
}

func ComputeStats(entries []Entry) Stats {
	if len(entries) == 0 {
		return Stats{}
	}
	emails := make(map[string]struct{}, len(entries))
	syllabuses := make(map[string]struct{})
	var sum float64
	started := 0
	for _, e := range entries {
		emails[e.Email] = struct{}{}
		syllabuses[e.SyllabusName] = struct{}{}
		sum += e.ProgressPercentage
		if e.ProgressPercentage > 0 {
			started++
		}
	}
	return Stats{
		TotalStudents:      len(emails),
		AverageProgress:    sum / float64(len(entries)),
		SyllabusesAssigned: len(syllabuses),
		CompletionRate:     float64(started) / float64(len(emails)) * 100,
	}
}

// DistinctByEmail keeps the first entry of every email, in input order.
func DistinctByEmail(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Email]; ok {
			continue
		}
		seen[e.Email] = struct{}{}
		out = append(out, e)
	}
	return out
}

// TopPerformersAbove is the progress an entry must exceed to count as a top performer.
const TopPerformersAbove = 75

// TopPerformers returns at most n students above TopPerformersAbove, in roster order.
// Only the first entry of every email is considered.
func TopPerformers(entries []Entry, n int) []Entry {
	var out []Entry
	for _, e := range DistinctByEmail(entries) {
		if e.ProgressPercentage > TopPerformersAbove {
			out = append(out, e)
		}
	}
	return limit(out, n)
}

// NeedAttentionBelow is the progress under which an entry needs attention.
const NeedAttentionBelow = 25

// NeedAttention returns at most n entries below NeedAttentionBelow, in roster order.
func NeedAttention(entries []Entry, n int) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.ProgressPercentage < NeedAttentionBelow {
			out = append(out, e)
		}
	}
	return limit(out, n)
}

// Distribution counts entries per chart bucket. Unlike the filter buckets these do not
// overlap: <=25, <=50, <=75, and the rest.
type Distribution struct {
	UpTo25  int
	UpTo50  int
	UpTo75  int
	UpTo100 int
}

func Distribute(entries []Entry) Distribution {
	var d Distribution
	for _, e := range entries {
		switch p := e.ProgressPercentage; {
		case p <= 25:
			d.UpTo25++
		case p <= 50:
			d.UpTo50++
		case p <= 75:
			d.UpTo75++
		default:
			d.UpTo100++
		}
	}
	return d
}

// Student groups the roster entries of one email.
type Student struct {
	Email         string
	Name          string
	Syllabuses    []Entry
	TotalProgress float64 // mean over Syllabuses
}

// GroupByStudent groups entries by email in order of first appearance.
func GroupByStudent(entries []Entry) []Student {
	index := make(map[string]int)
	var out []Student
	for _, e := range entries {
		i, ok := index[e.Email]
		if !ok {
			i = len(out)
			index[e.Email] = i
			out = append(out, Student{Email: e.Email, Name: e.Name})
		}
		out[i].Syllabuses = append(out[i].Syllabuses, e)
	}
	for i := range out {
		var sum float64
		for _, e := range out[i].Syllabuses {
			sum += e.ProgressPercentage
		}
		out[i].TotalProgress = sum / float64(len(out[i].Syllabuses))
	}
	return out
}

func limit(entries []Entry, n int) []Entry {
	if n >= 0 && len(entries) > n {
		return entries[:n]
	}
	return entries
}
