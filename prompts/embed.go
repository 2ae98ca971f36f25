package prompts

import _ "embed"

//go:embed judge/evaluate.md.tmpl
var EvaluateTemplate string

//go:embed judge/score.md.tmpl
var ScoreTemplate string

//go:embed judge/guidance.md.tmpl
var GuidanceTemplate string

//go:embed judge/question.md.tmpl
var QuestionTemplate string

//go:embed refine/rewrite.md.tmpl
var RewriteTemplate string
