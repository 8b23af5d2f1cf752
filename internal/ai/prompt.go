package ai

import (
	"encoding/json"
	"strings"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// DefaultSystemPrompt is the persona sent as the system message.
const DefaultSystemPrompt = "You are an expert Site Reliability Engineer (SRE) and DevOps engineer " +
	"specializing in incident analysis and root cause determination. Always respond with valid JSON."

const promptHeader = `You are an expert Site Reliability Engineer (SRE) analyzing a production alert. ` +
	`Your task is to perform root cause analysis and provide actionable remediation steps.`

const promptInstructions = `**ANALYSIS REQUIRED:**
Please analyze the above information and provide:
1. **Summary**: A brief 2-3 sentence summary of the incident
2. **Root Cause**: The most likely root cause based on metrics and logs
3. **Evidence**: Specific evidence from metrics and logs supporting your analysis (list 3-5 key pieces of evidence)
4. **Remediation Steps**: Concrete, actionable steps to resolve the issue (ordered by priority)
5. **Severity Assessment**: Your assessment of the actual impact (Critical/High/Medium/Low) with justification

**OUTPUT FORMAT:**
Respond ONLY with a valid JSON object in this exact format:
{
  "summary": "Brief summary here",
  "root_cause": "Identified root cause",
  "evidence": [
    "Evidence point 1",
    "Evidence point 2",
    "Evidence point 3"
  ],
  "remediation_steps": [
    "Step 1: Immediate action",
    "Step 2: Short-term fix",
    "Step 3: Long-term solution"
  ],
  "severity_assessment": "Critical/High/Medium/Low - Justification",
  "confidence": 0.85
}

Provide your analysis now:`

// BuildPrompt renders the user message for an analysis request.
// The output depends only on its input; labels are serialized with sorted keys.
func BuildPrompt(actx models.AnalysisContext) string {
	labels := actx.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	labelJSON, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		labelJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n**ALERT INFORMATION:**\n")
	b.WriteString("- Alert Name: " + actx.AlertName + "\n")
	b.WriteString("- Severity: " + actx.Severity + "\n")
	b.WriteString("- Summary: " + actx.Summary + "\n")
	b.WriteString("- Description: " + actx.Description + "\n")
	b.WriteString("- Labels: " + string(labelJSON) + "\n")
	b.WriteString("\n**METRICS DATA:**\n")
	b.WriteString(FormatMetrics(actx.Metrics))
	b.WriteString("\n\n**LOG DATA:**\n")
	b.WriteString(FormatLogs(actx.Logs))
	b.WriteString("\n\n")
	b.WriteString(promptInstructions)
	return b.String()
}

// BuildMessages pairs the system persona with the rendered prompt.
func BuildMessages(systemPrompt string, actx models.AnalysisContext) []models.ChatMessage {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: systemPrompt},
		{Role: models.RoleUser, Content: BuildPrompt(actx)},
	}
}
