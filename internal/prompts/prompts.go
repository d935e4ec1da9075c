package prompts

import (
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"readiness-backend/internal/assessment"
)

//go:embed templates/*.txt
var templateFiles embed.FS

// ErrUnknownStage is returned for stages without a template.
var ErrUnknownStage = errors.New("unknown prompt stage")

const maxRepairEcho = 6000

func template(name string) (string, error) {
	data, err := templateFiles.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompt template %s: %w", name, err)
	}
	return string(data), nil
}

func templateName(stage assessment.Stage) (string, error) {
	switch stage {
	case assessment.StageTechnical, assessment.StageResume, assessment.StageCommunication, assessment.StagePortfolio,
		assessment.StageConsolidated, assessment.StageOverall:
		return string(stage), nil
	case assessment.StageResumeDocument:
		return "resume_document", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
}

// Build renders the prompt for a question-driven stage. Category stages only
// interpolate their own question ids; the consolidated stage takes all twelve
// plus the optional resume text; the resume document stage takes resume text only.
// The overall stage needs category results and is built with BuildOverall.
func Build(stage assessment.Stage, answers assessment.Answers, resumeText string) (string, error) {
	if stage == assessment.StageOverall {
		return "", fmt.Errorf("%w: overall prompt requires category results", ErrUnknownStage)
	}
	name, err := templateName(stage)
	if err != nil {
		return "", err
	}
	tpl, err := template(name)
	if err != nil {
		return "", err
	}
	schema, err := assessment.SchemaText(assessment.SchemaFor(stage))
	if err != nil {
		return "", err
	}

	pairs := []string{"{{SCHEMA}}", strings.TrimSpace(schema)}
	switch stage {
	case assessment.StageConsolidated:
		pairs = append(pairs, answerPairs(answers, allQuestionIDs())...)
		pairs = append(pairs, "{{RESUME_SECTION}}", resumeSection(resumeText))
	case assessment.StageResumeDocument:
		pairs = append(pairs, "{{RESUME_TEXT}}", resumeText)
	default:
		pairs = append(pairs, answerPairs(answers, assessment.QuestionIDs(assessment.Category(stage)))...)
	}
	return strings.NewReplacer(pairs...).Replace(tpl), nil
}

// BuildOverall renders the overall prompt from the four category analyses.
func BuildOverall(results map[assessment.Category]assessment.CategoryAnalysis) (string, error) {
	tpl, err := template("overall")
	if err != nil {
		return "", err
	}
	schema, err := assessment.SchemaText(assessment.SchemaOverall)
	if err != nil {
		return "", err
	}
	replacer := strings.NewReplacer(
		"{{SCHEMA}}", strings.TrimSpace(schema),
		"{{TECHNICAL_SCORE}}", strconv.Itoa(results[assessment.CategoryTechnical].Score),
		"{{RESUME_SCORE}}", strconv.Itoa(results[assessment.CategoryResume].Score),
		"{{COMMUNICATION_SCORE}}", strconv.Itoa(results[assessment.CategoryCommunication].Score),
		"{{PORTFOLIO_SCORE}}", strconv.Itoa(results[assessment.CategoryPortfolio].Score),
	)
	return replacer.Replace(tpl), nil
}

// BuildRepair renders a follow-up prompt asking the model to fix an unusable reply.
func BuildRepair(stage assessment.Stage, raw string, problem string) (string, error) {
	if _, err := templateName(stage); err != nil {
		return "", err
	}
	tpl, err := template("repair")
	if err != nil {
		return "", err
	}
	schema, err := assessment.SchemaText(assessment.SchemaFor(stage))
	if err != nil {
		return "", err
	}
	if len(raw) > maxRepairEcho {
		cut := maxRepairEcho
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	replacer := strings.NewReplacer(
		"{{SCHEMA}}", strings.TrimSpace(schema),
		"{{RAW}}", raw,
		"{{PROBLEM}}", problem,
	)
	return replacer.Replace(tpl), nil
}

func answerPairs(answers assessment.Answers, ids []int) []string {
	pairs := make([]string, 0, len(ids)*2)
	for _, id := range ids {
		pairs = append(pairs, "{{ANSWER_"+strconv.Itoa(id)+"}}", answers.Get(id))
	}
	return pairs
}

func allQuestionIDs() []int {
	var ids []int
	for _, c := range assessment.Categories {
		ids = append(ids, assessment.QuestionIDs(c)...)
	}
	return ids
}

func resumeSection(resumeText string) string {
	if strings.TrimSpace(resumeText) == "" {
		return ""
	}
	return "\n5. RESUME CONTENT (raw text extracted from the uploaded PDF)\n" + resumeText + "\n"
}
