package assessment

// Question is a fixed multiple-choice item.
type Question struct {
	ID       int      `json:"id"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Text     string   `json:"question"`
	Options  []string `json:"options"`
}

var catalog = []Question{
	{ID: 1, Category: CategoryTechnical, Label: "Data Structures & Algorithms", Text: "What is your experience level with data structures and algorithms?", Options: []string{"Beginner", "Intermediate", "Advanced", "Expert"}},
	{ID: 2, Category: CategoryTechnical, Label: "Practice Problems Solved", Text: "How many LeetCode/HackerRank problems have you solved?", Options: []string{"0-10", "11-50", "51-100", "100+"}},
	{ID: 3, Category: CategoryTechnical, Label: "System Design", Text: "Rate your understanding of system design concepts:", Options: []string{"No knowledge", "Basic understanding", "Can design simple systems", "Can design complex systems"}},

	{ID: 4, Category: CategoryResume, Label: "Quantified Achievements", Text: "Does your resume include quantifiable achievements (metrics, percentages, numbers)?", Options: []string{"No metrics", "Some metrics", "Most bullets have metrics", "All bullets quantified"}},
	{ID: 5, Category: CategoryResume, Label: "Years of Experience", Text: "How many years of relevant experience do you have?", Options: []string{"0-1 years", "1-2 years", "2-4 years", "4+ years"}},
	{ID: 6, Category: CategoryResume, Label: "ATS Optimization", Text: "Have you tailored your resume for ATS (Applicant Tracking Systems)?", Options: []string{"Not sure what ATS is", "No", "Somewhat", "Yes, fully optimized"}},

	{ID: 7, Category: CategoryCommunication, Label: "Explaining to Non-Technical People", Text: "How comfortable are you explaining technical concepts to non-technical people?", Options: []string{"Very uncomfortable", "Somewhat uncomfortable", "Comfortable", "Very comfortable"}},
	{ID: 8, Category: CategoryCommunication, Label: "STAR Framework", Text: "Do you use structured frameworks (like STAR) for behavioral questions?", Options: []string{"Never heard of it", "Aware but don't use", "Sometimes use it", "Always use it"}},
	{ID: 9, Category: CategoryCommunication, Label: "Mock Interviews", Text: "How many mock interviews have you completed?", Options: []string{"0", "1-3", "4-10", "10+"}},

	{ID: 10, Category: CategoryPortfolio, Label: "Project Count", Text: "How many projects are in your portfolio?", Options: []string{"0-1", "2-3", "4-5", "6+"}},
	{ID: 11, Category: CategoryPortfolio, Label: "README Quality", Text: "Do your projects have detailed README files with setup instructions?", Options: []string{"No READMEs", "Basic READMEs", "Detailed READMEs", "Professional documentation"}},
	{ID: 12, Category: CategoryPortfolio, Label: "Project Complexity", Text: "What is the complexity level of your best project?", Options: []string{"Simple CRUD app", "Multi-feature app", "Full-stack with auth", "Production-ready with CI/CD"}},
}

// Questions returns a copy of the question catalog in id order.
func Questions() []Question {
	out := make([]Question, len(catalog))
	for i, q := range catalog {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// QuestionByID looks up a catalog entry.
func QuestionByID(id int) (Question, bool) {
	for _, q := range catalog {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// QuestionsFor returns the catalog entries of a category.
func QuestionsFor(c Category) []Question {
	var out []Question
	for _, q := range catalog {
		if q.Category == c {
			out = append(out, q)
		}
	}
	return out
}

// QuestionIDs returns the fixed id set of a category.
func QuestionIDs(c Category) []int {
	qs := QuestionsFor(c)
	ids := make([]int, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	return ids
}

// OptionIndex returns the position of value among the question's options, or -1.
func OptionIndex(id int, value string) int {
	q, ok := QuestionByID(id)
	if !ok {
		return -1
	}
	for i, opt := range q.Options {
		if opt == value {
			return i
		}
	}
	return -1
}
