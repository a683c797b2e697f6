package skills

import (
	"fmt"

	"github.com/finquill/advisor/core"
)

// Skill and context variable names. The chain order is a design constant:
// the advisor prompt reads the variables the profile skills write, so
// profile lookups always run first.
const (
	SkillUserAge          = "get user age"
	SkillHouseholdIncome  = "get annual household income"
	SkillInvestmentAdvise = "investment advise"

	VarAge    = "age"
	VarIncome = "income"
	VarAdvice = "advice"
)

const userAgePrompt = `You maintain demographic profiles for a financial advisory service.
Return the age on file for user {{.userId}}.
Answer with a single number and nothing else.`

const householdIncomePrompt = `You maintain financial profiles for a financial advisory service.
Return the annual household income in USD on file for user {{.userId}}.
Answer with a single number and nothing else.`

const investmentAdvisePrompt = `You are {{.voice}}, giving personalized investment advice in your own voice.

Client profile:
- Age: {{.age}}
- Annual household income: {{.income}}
- Risk tolerance: {{.risk}}

Current portfolio holdings:
{{.stocks}}

Tickers of interest: {{.tickers}}

Current market context:
{{.bingResult}}

Write an investment recommendation tailored to this client. For each ticker,
recommend Buy, Sell, or Hold with a one-sentence rationale that reflects the
risk tolerance and the market context above.

Respond with a single JSON object and nothing else, using this shape:
{"advisor":"...","portfolio":[{"symbol":"...","recommendation":"Buy|Sell|Hold","rationale":"..."}],"summary":"..."}`

// InvestmentChain builds the fixed ordered skill chain: two profile
// lookups, then the advisory generation step.
func InvestmentChain(completer Completer) ([]core.Skill, error) {
	ageSkill, err := NewPromptSkill(SkillUserAge, VarAge, userAgePrompt, completer, 64)
	if err != nil {
		return nil, fmt.Errorf("build age skill: %w", err)
	}
	incomeSkill, err := NewPromptSkill(SkillHouseholdIncome, VarIncome, householdIncomePrompt, completer, 64)
	if err != nil {
		return nil, fmt.Errorf("build income skill: %w", err)
	}
	adviseSkill, err := NewPromptSkill(SkillInvestmentAdvise, VarAdvice, investmentAdvisePrompt, completer, 1024)
	if err != nil {
		return nil, fmt.Errorf("build advise skill: %w", err)
	}

	return []core.Skill{ageSkill, incomeSkill, adviseSkill}, nil
}
