package rating

// Level names shared by every dimension, indexed by stars-1.
var levelNames = [MaxScore]string{
	"Very Poor",
	"Poor",
	"Needs Improvement",
	"Good",
	"Very Good",
}

var levelDescriptions = [Count][MaxScore]string{
	ServiceOrientation: {
		"Not responsive to service needs",
		"Responsive but limited in service",
		"Reasonably responsive to service needs",
		"Responsive and proactive in service",
		"Highly responsive and innovative in service",
	},
	Accountability: {
		"Does not take responsibility for assigned work",
		"Occasionally takes responsibility for assigned work",
		"Responsible but needs supervision",
		"Takes responsibility for assigned work",
		"Highly responsible and transparent",
	},
	Competence: {
		"Lacks the required competence",
		"Basic competence, needs a lot of guidance",
		"Has basic competence",
		"Competent in their field",
		"Highly competent and a reference for others",
	},
	Harmony: {
		"Frequently causes conflict",
		"Sometimes disrupts team harmony",
		"Reasonably harmonious within the team",
		"Works together harmoniously",
		"Creates harmony within the team",
	},
	Loyalty: {
		"Not loyal to the organisation",
		"Weak loyalty to the organisation",
		"Reasonably loyal to the organisation",
		"Loyal to the organisation",
		"Highly loyal and a credit to the organisation",
	},
	Adaptability: {
		"Unable to adapt to change",
		"Slow to adapt to change",
		"Reasonably able to adapt to change",
		"Adapts to change",
		"Adapts quickly and innovatively",
	},
	Collaboration: {
		"Unable to work with others",
		"Sometimes works with others",
		"Reasonably able to work with others",
		"Works well with others",
		"Highly collaborative and builds the team",
	},
}

// Describe returns the level name and the descriptive label shown to an
// evaluator for the given dimension and star count. ok is false when either
// argument is out of range.
func Describe(d Dimension, stars int) (level, description string, ok bool) {
	if !d.Valid() || stars < MinScore || stars > MaxScore {
		return "", "", false
	}
	return levelNames[stars-1], levelDescriptions[d][stars-1], true
}
