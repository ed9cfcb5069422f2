// Package symptoms provides a guided symptom assessment: a primary-symptom
// lookup with follow-up questions, severity analysis of the answers, and
// red-flag / self-care reference lists.
package symptoms

import (
	"strconv"
	"strings"
)

const (
	SeverityEmergency = "EMERGENCY"
	SeverityHigh      = "HIGH"
	SeverityModerate  = "MODERATE"
	SeverityMild      = "MILD"
	SeverityUnknown   = "ASSESSMENT REQUIRED"
)

type symptomProfile struct {
	severity          string // "", "emergency", or "urgent"
	immediateAction   string
	warning           string
	questions         []string
	relatedConditions []string
}

// Assessment is the first step of a check: the questions to ask for a
// recognized symptom, or a suggestion list when the symptom is unknown.
type Assessment struct {
	Symptom         string   `json:"symptom"`
	Questions       []string `json:"questions,omitempty"`
	Severity        string   `json:"severity,omitempty"`
	ImmediateAction string   `json:"immediate_action,omitempty"`
	Warning         string   `json:"warning,omitempty"`
	Message         string   `json:"message,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

// Analysis grades the user's answers and recommends next steps.
type Analysis struct {
	Severity       string   `json:"severity"`
	Recommendation string   `json:"recommendation"`
	Actions        []string `json:"actions,omitempty"`
	HomeCare       []string `json:"home_care,omitempty"`
	GeneralAdvice  []string `json:"general_advice,omitempty"`
}

// Checker holds the static symptom reference data. Safe for concurrent use;
// nothing is mutated after construction.
type Checker struct {
	profiles map[string]symptomProfile
	order    []string
}

func NewChecker() *Checker {
	c := &Checker{profiles: make(map[string]symptomProfile)}
	add := func(name string, profile symptomProfile) {
		c.profiles[name] = profile
		c.order = append(c.order, name)
	}

	add("fever", symptomProfile{
		relatedConditions: []string{"influenza", "infection", "covid-19", "malaria"},
		questions: []string{
			"What is your current temperature?",
			"How long have you had the fever?",
			"Do you have any other symptoms (cough, headache, body aches)?",
			"Have you recently traveled?",
		},
	})
	add("chest_pain", symptomProfile{
		severity:        "emergency",
		immediateAction: "Call emergency services immediately",
		warning:         "SEEK IMMEDIATE MEDICAL ATTENTION",
		questions: []string{
			"Is the pain radiating to your arm or jaw?",
			"Do you have shortness of breath?",
			"Are you experiencing sweating or nausea?",
		},
	})
	add("headache", symptomProfile{
		questions: []string{
			"Where is the pain located?",
			"Is the pain throbbing or constant?",
			"Are you sensitive to light or sound?",
			"Do you have nausea or vision changes?",
		},
	})
	add("abdominal_pain", symptomProfile{
		questions: []string{
			"Where exactly is the pain located?",
			"Is it sharp or dull?",
			"Does it worsen with movement or eating?",
			"Do you have nausea, vomiting, or changes in bowel movements?",
		},
	})
	add("cough", symptomProfile{
		questions: []string{
			"Is the cough dry or producing mucus?",
			"What color is the mucus (if any)?",
			"How long have you been coughing?",
			"Do you have difficulty breathing?",
		},
	})
	add("shortness_of_breath", symptomProfile{
		severity:        "urgent",
		immediateAction: "Seek immediate medical attention",
		questions: []string{
			"When did it start?",
			"Does it occur at rest or with exertion?",
			"Do you have chest pain?",
			"Do you have a history of heart or lung disease?",
		},
	})
	return c
}

// StartAssessment matches the described primary symptom against the known
// set. Matching is forgiving: either string may contain the other, so both
// "pain in my chest_pain" and "chest" find chest_pain.
func (c *Checker) StartAssessment(primary string) Assessment {
	needle := strings.ToLower(strings.TrimSpace(primary))
	for _, name := range c.order {
		if needle == "" {
			break
		}
		if strings.Contains(needle, name) || strings.Contains(name, needle) {
			profile := c.profiles[name]
			severity := profile.severity
			if severity == "" {
				severity = "assessment_required"
			}
			return Assessment{
				Symptom:         name,
				Questions:       profile.questions,
				Severity:        severity,
				ImmediateAction: profile.immediateAction,
				Warning:         profile.warning,
			}
		}
	}
	return Assessment{
		Symptom:     "unknown",
		Message:     "Please describe your main symptom",
		Suggestions: append([]string(nil), c.order...),
	}
}

// AnalyzeResponses grades the answers for a symptom. Emergency symptoms
// short-circuit; fever is graded by reported temperature; everything else
// gets the generic consult-a-professional result.
func (c *Checker) AnalyzeResponses(symptom string, responses map[string]string) Analysis {
	switch symptom {
	case "chest_pain", "shortness_of_breath":
		return Analysis{
			Severity:       SeverityEmergency,
			Recommendation: "CALL EMERGENCY SERVICES IMMEDIATELY",
			Actions: []string{
				"Do not drive yourself",
				"Stay calm",
				"Sit in a comfortable position",
				"If prescribed, take emergency medication",
			},
		}
	case "fever":
		if analysis, ok := analyzeFever(responses); ok {
			return analysis
		}
	}
	return Analysis{
		Severity:       SeverityUnknown,
		Recommendation: "Consult a healthcare provider for proper evaluation",
		GeneralAdvice: []string{
			"Keep track of symptoms",
			"Note any changes or new symptoms",
			"Avoid self-medication without guidance",
			"Seek medical care if symptoms worsen",
		},
	}
}

func analyzeFever(responses map[string]string) (Analysis, bool) {
	raw := strings.TrimSpace(responses["temperature"])
	if raw == "" {
		return Analysis{}, false
	}
	temp, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Analysis{}, false
	}

	var severity, recommendation string
	switch {
	case temp >= 103:
		severity = SeverityHigh
		recommendation = "Consult a doctor today"
	case temp >= 101:
		severity = SeverityModerate
		recommendation = "Monitor closely, see a doctor if it persists 3+ days"
	default:
		severity = SeverityMild
		recommendation = "Home care with rest and fluids"
	}
	return Analysis{
		Severity:       severity,
		Recommendation: recommendation,
		HomeCare: []string{
			"Rest adequately",
			"Drink plenty of fluids",
			"Take paracetamol as directed",
			"Monitor temperature every 4 hours",
			"Watch for worsening symptoms",
		},
	}, true
}

// RedFlags lists the warning signs that turn a symptom into an urgent visit.
func (c *Checker) RedFlags(symptom string) []string {
	flags := map[string][]string{
		"fever": {
			"Temperature above 103F (39.4C)",
			"Fever lasting more than 5 days",
			"Severe headache with stiff neck",
			"Difficulty breathing",
			"Confusion or altered mental state",
			"Seizures",
			"Persistent vomiting",
		},
		"headache": {
			"Sudden severe headache ('worst ever')",
			"Headache with fever and stiff neck",
			"Headache after head injury",
			"Headache with vision changes",
			"Headache with weakness or numbness",
			"New headache pattern after age 50",
		},
		"abdominal_pain": {
			"Severe, sudden pain",
			"Pain with fever",
			"Vomiting blood",
			"Black or bloody stools",
			"Hard, swollen abdomen",
			"Pregnant with abdominal pain",
		},
		"cough": {
			"Coughing up blood",
			"Difficulty breathing",
			"High fever with cough",
			"Cough lasting more than 3 weeks",
			"Chest pain with cough",
			"Wheezing or stridor",
		},
	}
	if specific, ok := flags[symptom]; ok {
		return specific
	}
	return []string{
		"Severe or worsening symptoms",
		"Symptoms lasting longer than expected",
		"New concerning symptoms",
		"Difficulty performing daily activities",
	}
}

// SelfCareTips lists home care measures for a symptom.
func (c *Checker) SelfCareTips(symptom string) []string {
	tips := map[string][]string{
		"fever": {
			"Rest in a comfortable environment",
			"Drink 8-10 glasses of fluids daily",
			"Take paracetamol as directed",
			"Use cool compresses on the forehead",
			"Wear light clothing",
			"Monitor temperature regularly",
		},
		"headache": {
			"Rest in a quiet, dark room",
			"Apply a cold or warm compress",
			"Stay well hydrated",
			"Practice relaxation techniques",
			"Avoid trigger foods",
			"Maintain a regular sleep schedule",
		},
		"abdominal_pain": {
			"Rest and avoid strenuous activity",
			"Eat bland, easily digestible foods",
			"Stay hydrated with clear fluids",
			"Avoid spicy, fatty, or acidic foods",
			"Use a heating pad on a low setting",
			"Monitor symptoms closely",
		},
		"cough": {
			"Drink warm liquids such as honey and lemon tea",
			"Use a humidifier in the room",
			"Avoid irritants like smoke and dust",
			"Stay hydrated",
			"Rest adequately",
			"Elevate your head while sleeping",
		},
	}
	if specific, ok := tips[symptom]; ok {
		return specific
	}
	return []string{
		"Rest adequately",
		"Stay hydrated",
		"Avoid known triggers",
		"Monitor symptoms",
		"Seek medical care if needed",
	}
}

// Known lists the recognized symptom names in declaration order.
func (c *Checker) Known() []string {
	return append([]string(nil), c.order...)
}
