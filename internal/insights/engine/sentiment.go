package engine

// Sentiment is a bounded score with its label and a confidence magnitude
type Sentiment struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

var positiveLexicon = map[string]bool{
	"great": true, "good": true, "excellent": true, "thanks": true,
	"thank": true, "appreciate": true, "awesome": true, "perfect": true,
	"happy": true, "glad": true, "wonderful": true, "fantastic": true,
	"love": true, "excited": true, "congratulations": true, "congrats": true,
	"well": true, "nice": true, "pleased": true, "success": true,
	"successful": true, "amazing": true, "helpful": true, "best": true,
}

var negativeLexicon = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "problem": true,
	"issue": true, "concern": true, "concerned": true, "worried": true,
	"disappointed": true, "disappointing": true, "unfortunately": true,
	"fail": true, "failed": true, "failure": true, "wrong": true,
	"broken": true, "angry": true, "frustrated": true, "frustrating": true,
	"sorry": true, "worst": true, "delay": true, "delayed": true,
	"blocker": true, "blocked": true, "unacceptable": true,
}

// AnalyzeSentiment scores text in [-1, 1] from positive vs negative lexicon
// counts. Text without sentiment-bearing words is neutral with score 0; any
// hit yields a confidence greater than zero.
func AnalyzeSentiment(text string, cfg Config) Sentiment {
	pos, neg := 0, 0
	for _, tok := range tokenize(text) {
		if positiveLexicon[tok] {
			pos++
		}
		if negativeLexicon[tok] {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return Sentiment{Score: 0, Label: SentimentNeutral, Confidence: 0}
	}

	score := float64(pos-neg) / float64(total)
	confidence := float64(total) * 0.2
	if confidence > 1.0 {
		confidence = 1.0
	}

	label := SentimentNeutral
	if score > cfg.SentimentPositiveThreshold {
		label = SentimentPositive
	} else if score < cfg.SentimentNegativeThreshold {
		label = SentimentNegative
	}

	return Sentiment{Score: score, Label: label, Confidence: confidence}
}
