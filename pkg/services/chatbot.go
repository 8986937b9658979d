package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/apperrors"
	"github.com/ami-sense/ami-engine/pkg/aqi"
	"github.com/ami-sense/ami-engine/pkg/models"
	"github.com/ami-sense/ami-engine/pkg/repositories"
)

const chatbotFallback = "I'm sorry, I don't have an answer to that question. Please try asking something about the system features, usage, sensor data, or contact information. Type 'help' to see what you can ask."

// ChatbotService answers dashboard questions without an LLM: exact
// suggestion matching, keyword dispatch, live sensor answers, curated QA
// pairs and a built-in FAQ fallback.
type ChatbotService interface {
	Answer(ctx context.Context, query string) (string, error)
}

// chatbotService implements ChatbotService.
type chatbotService struct {
	sensors repositories.SensorDataRepository
	qa      repositories.QARepository
	corpus  *FAQCorpus
	logger  *zap.Logger
}

// NewChatbotService creates the rule-based chatbot.
func NewChatbotService(
	sensors repositories.SensorDataRepository,
	qa repositories.QARepository,
	corpus *FAQCorpus,
	logger *zap.Logger,
) ChatbotService {
	return &chatbotService{
		sensors: sensors,
		qa:      qa,
		corpus:  corpus,
		logger:  logger.Named("chatbot"),
	}
}

// suggestionAnswers maps a lowercase fragment of a suggestion to the FAQ
// key answering it. Checked only on exact suggestion matches.
var suggestionAnswers = []struct {
	fragment string
	faqKey   string
}{
	{"contact support", "contact support"},
	{"what is this system", "what is this system"},
	{"how do i use", "how to use"},
	{"features", "features"},
	{"add a new data", "how to add data"},
	{"who created", "who created"},
	{"sensors are supported", "sensor types"},
	{"export", "export data"},
	{"system requirements", "system requirements"},
	{"mobile", "mobile access"},
}

// Answer resolves a query through the dispatch chain. Only repository
// failures surface as errors; an unmatched query gets the apology fallback.
func (s *chatbotService) Answer(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(strings.ToLower(query))
	cleaned := cleanText(query)

	// Exact match against the suggestion list.
	for _, suggestion := range s.corpus.Suggestions {
		if cleaned != cleanText(suggestion) {
			continue
		}
		lowered := strings.ToLower(suggestion)
		for _, sa := range suggestionAnswers {
			if strings.Contains(lowered, sa.fragment) {
				if answer, ok := s.corpus.Answer(sa.faqKey); ok {
					return answer, nil
				}
			}
		}
	}

	// Keyword dispatch.
	switch {
	case strings.Contains(cleaned, "contact") && containsAny(cleaned, "support", "help", "service"):
		if answer, ok := s.corpus.Answer("contact support"); ok {
			return answer, nil
		}
	case containsAny(cleaned, "email", "phone", "call"):
		if answer, ok := s.corpus.Answer("contact support"); ok {
			return answer, nil
		}
	case strings.Contains(cleaned, "add") && containsAny(cleaned, "data", "information", "reading", "measurement"):
		if answer, ok := s.corpus.Answer("how to add data"); ok {
			return answer, nil
		}
	case containsAny(cleaned, "export", "download data"):
		if answer, ok := s.corpus.Answer("export data"); ok {
			return answer, nil
		}
	case containsAny(cleaned, "what is aqi", "aqi meaning", "air quality index"):
		if answer, ok := s.corpus.Answer("aqi"); ok {
			return answer, nil
		}
	case containsAny(cleaned, "pm10", "pm100"):
		if !containsAny(cleaned, "pm1 ", "pm2") {
			if response, err := s.sensorInfo(ctx, query); err != nil || response != "" {
				return response, err
			}
		}
	case strings.Contains(cleaned, "pm1"):
		if response, err := s.sensorInfo(ctx, query); err != nil || response != "" {
			return response, err
		}
	case containsAny(cleaned, "pm25", "pm2"):
		if response, err := s.sensorInfo(ctx, query); err != nil || response != "" {
			return response, err
		}
	}

	// Help requests.
	if cleaned == "help" || cleaned == "what can i ask" || cleaned == "what can you do" {
		return s.helpResponse(), nil
	}

	// More question suggestions.
	if containsAny(cleaned, "more questions", "more suggestions", "what else", "show more") {
		return "Here are more questions you can ask:\n\n" + strings.Join(s.corpus.Suggestions, "\n"), nil
	}

	// Live sensor answers.
	if response, err := s.sensorInfo(ctx, query); err != nil {
		return "", err
	} else if response != "" {
		return response, nil
	}

	// Curated QA pairs from the database.
	match, err := s.findBestQAMatch(ctx, query)
	if err != nil {
		return "", err
	}
	if match != nil {
		return match.Answer, nil
	}

	// Built-in FAQ word-overlap fallback.
	queryWords := wordSet(cleaned)
	bestScore := 0.0
	bestAnswer := ""
	for _, entry := range s.corpus.Entries {
		score := wordOverlapScore(queryWords, cleanText(entry.Question))
		if score > bestScore {
			bestScore = score
			bestAnswer = entry.Answer
		}
	}
	if bestScore > 0.3 {
		return bestAnswer, nil
	}

	return chatbotFallback, nil
}

func (s *chatbotService) helpResponse() string {
	top := s.corpus.Suggestions
	if len(top) > 5 {
		top = top[:5]
	}
	response := "You can ask me about:\n" +
		"- System information and features\n" +
		"- How to use the system\n" +
		"- Sensor data (current readings, averages, interpretations)\n" +
		"- Contact and support information\n\n" +
		"Try questions like:\n" +
		strings.Join(top, "\n") + "\n\n" +
		"For more suggestions, ask 'Show more questions'"
	return response
}

// findBestQAMatch ports the curated-pair matcher: exact question match
// first, then word-overlap scoring with an exact-phrase bonus and a 0.6
// threshold. Queries about analyzing data skip pairs that never mention
// analysis.
func (s *chatbotService) findBestQAMatch(ctx context.Context, query string) (*models.QAPair, error) {
	pairs, err := s.qa.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, pair := range pairs {
		if strings.EqualFold(pair.Question, query) {
			return pair, nil
		}
	}

	cleaned := cleanText(query)
	queryWords := strings.Fields(cleaned)
	if len(queryWords) == 0 {
		return nil, nil
	}
	queryHasData := false
	queryHasAnalyze := false
	for _, w := range queryWords {
		if w == "data" {
			queryHasData = true
		}
		if w == "analyze" {
			queryHasAnalyze = true
		}
	}

	var best *models.QAPair
	bestScore := 0.0
	for _, pair := range pairs {
		cleanedQuestion := cleanText(pair.Question)
		questionWords := wordSet(cleanedQuestion)

		if queryHasData && queryHasAnalyze && !questionWords["analyze"] {
			continue
		}

		matches := 0
		for _, w := range queryWords {
			if questionWords[w] {
				matches++
			}
		}
		score := float64(matches) / float64(len(queryWords))
		if strings.Contains(cleanedQuestion, cleaned) {
			score += 3
		}

		if score > bestScore {
			bestScore = score
			best = pair
		}
	}

	if bestScore > 0.6 {
		return best, nil
	}
	return nil, nil
}

// sensorInfo answers live sensor questions. Returns "" when the query is
// not sensor related.
func (s *chatbotService) sensorInfo(ctx context.Context, query string) (string, error) {
	cleaned := cleanText(query)

	latest, err := s.sensors.GetLatest(ctx)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return "", err
	}

	switch {
	case containsAny(cleaned, "aqi", "air quality index", "air index"):
		if latest == nil {
			return "No air quality data available.", nil
		}
		return s.aqiAnswer(latest), nil

	case containsAny(cleaned, "temperature", "hot", "cold"):
		if latest == nil {
			return "No temperature data available.", nil
		}
		return aqi.InterpretSensor("temperature", latest.Temperature), nil

	case containsAny(cleaned, "humidity", "humid", "dry"):
		if latest == nil {
			return "No humidity data available.", nil
		}
		return aqi.InterpretSensor("humidity", latest.Humidity), nil

	case containsAny(cleaned, "co2", "carbon dioxide"):
		if latest == nil {
			return "No CO2 data available.", nil
		}
		return aqi.InterpretSensor("co2", latest.CO2), nil

	// PM10 first so it is not mistaken for PM1.
	case containsAny(cleaned, "pm10", "pm100") && !containsAny(cleaned, "pm1 ", "pm2"):
		if latest == nil {
			return "No PM10 data available.", nil
		}
		return aqi.InterpretSensor("pm10_0", latest.PM10_0), nil

	case containsAny(cleaned, "pm1", "ultrafine") && !containsAny(cleaned, "pm10", "pm100"):
		if latest == nil {
			return "No PM1.0 data available.", nil
		}
		return aqi.InterpretSensor("pm1_0", latest.PM1_0), nil

	case containsAny(cleaned, "pm25", "pm2", "fine particles"):
		if latest == nil {
			return "No PM2.5 data available.", nil
		}
		return aqi.InterpretSensor("pm2_5", latest.PM2_5), nil

	case containsAny(cleaned, "air quality", "air", "quality"):
		if latest == nil {
			return "No air quality data available.", nil
		}
		aqiValue := aqi.FromPM(latest.PM2_5, latest.PM10_0)
		result := "Air Quality Status:\n"
		result += fmt.Sprintf("AQI: %d - %s\n", aqiValue, aqi.Explanation(aqi.LevelFor(aqiValue)))
		result += aqi.InterpretSensor("pm2_5", latest.PM2_5) + "\n"
		result += aqi.InterpretSensor("co2", latest.CO2)
		return result, nil

	case strings.Contains(cleaned, "average"):
		return s.averagesAnswer(ctx, cleaned)

	case containsAny(cleaned, "latest", "current", "now") ||
		(strings.Contains(cleaned, "data") &&
			!containsAny(cleaned, "analyze", "analyse", "average", "export", "add", "import", "delete")):
		if latest == nil {
			return "No sensor data available.", nil
		}
		return s.latestAnswer(latest), nil
	}

	return "", nil
}

func (s *chatbotService) aqiAnswer(latest *models.SensorReading) string {
	aqiValue := aqi.FromPM(latest.PM2_5, latest.PM10_0)
	result := fmt.Sprintf("Current AQI: %d\n", aqiValue)
	result += aqi.Explanation(aqi.LevelFor(aqiValue))

	if aqi.PM25AQI(latest.PM2_5) > aqi.PM10AQI(latest.PM10_0) {
		result += fmt.Sprintf("\n\nPM2.5 (%.1fμg/m³) is the main contributor to current AQI.", latest.PM2_5)
	} else {
		result += fmt.Sprintf("\n\nPM10 (%.1fμg/m³) is the main contributor to current AQI.", latest.PM10_0)
	}
	return result
}

func (s *chatbotService) averagesAnswer(ctx context.Context, cleaned string) (string, error) {
	avg, err := s.sensors.GetAverages(ctx)
	if err != nil {
		return "", err
	}
	if avg.Temperature == nil {
		return "No average data available.", nil
	}

	all := strings.Contains(cleaned, "all")
	result := "Average Sensor Readings:\n"
	if strings.Contains(cleaned, "temperature") || all {
		result += fmt.Sprintf("Temperature: %.1f°C\n", *avg.Temperature)
	}
	if strings.Contains(cleaned, "humidity") || all {
		result += fmt.Sprintf("Humidity: %.1f%%\n", *avg.Humidity)
	}
	if strings.Contains(cleaned, "co2") || all {
		result += fmt.Sprintf("CO2: %.1fppm\n", *avg.CO2)
	}
	if (strings.Contains(cleaned, "pm1") && !strings.Contains(cleaned, "pm10")) || all {
		result += fmt.Sprintf("PM1.0: %.1fμg/m³\n", *avg.PM1_0)
	}
	if containsAny(cleaned, "pm25", "pm2") || all {
		result += fmt.Sprintf("PM2.5: %.1fμg/m³\n", *avg.PM2_5)
	}
	if strings.Contains(cleaned, "pm10") || all {
		result += fmt.Sprintf("PM10: %.1fμg/m³", *avg.PM10_0)
	}
	return result, nil
}

func (s *chatbotService) latestAnswer(latest *models.SensorReading) string {
	aqiValue := aqi.FromPM(latest.PM2_5, latest.PM10_0)
	level := titleCase(strings.ReplaceAll(string(aqi.LevelFor(aqiValue)), "_", " "))

	result := "Latest Sensor Readings:\n"
	result += fmt.Sprintf("Time: %s\n", latest.Timestamp.Format("2006-01-02 15:04:05"))
	result += fmt.Sprintf("Temperature: %.1f°C\n", latest.Temperature)
	result += fmt.Sprintf("Humidity: %.1f%%\n", latest.Humidity)
	result += fmt.Sprintf("CO2: %.1fppm\n", latest.CO2)
	result += fmt.Sprintf("PM1.0: %.1fμg/m³\n", latest.PM1_0)
	result += fmt.Sprintf("PM2.5: %.1fμg/m³\n", latest.PM2_5)
	result += fmt.Sprintf("PM10: %.1fμg/m³\n", latest.PM10_0)
	result += fmt.Sprintf("AQI: %d (%s)", aqiValue, level)
	return result
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Ensure chatbotService implements ChatbotService at compile time.
var _ ChatbotService = (*chatbotService)(nil)

