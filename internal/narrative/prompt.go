package narrative

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
)

// DefaultLanguage matches the operators of the source application.
const DefaultLanguage = "Nederlands"

// Payload is the data a prompt is built from. Only the fields relevant to
// the requested Kind are used.
type Payload struct {
	Dataset     string   // file name, for context
	Stats       string   // fixed-width statistics table
	Question    string   // free-text operator question
	Correlation string   // correlation table
	Column      string   // column name for advice
	ColumnStats string   // statistics block of Column
	Anomalies   []string // one line per anomaly
	BandWidth   float64  // σ multiple the anomalies were detected with; 0 means the default
	Language    string
}

// BuildPrompt renders the system and user messages for kind. Every kind
// shares the same role framing; only the data block and task differ.
func BuildPrompt(kind Kind, p Payload) (system, user string) {
	lang := strings.TrimSpace(p.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	system = fmt.Sprintf("Je bent een ervaren procesingenieur in de afvalwaterzuivering. "+
		"Je beoordeelt meetgegevens (BZV/BOD, CZV/COD, stikstof, fosfaat, debiet) nuchter en praktisch. "+
		"Antwoord altijd in het %s, beknopt en zonder te verzinnen wat niet uit de gegevens blijkt.", lang)

	var sb strings.Builder
	if p.Dataset != "" {
		sb.WriteString("[DATASET]\n")
		sb.WriteString(p.Dataset)
		sb.WriteString("\n\n")
	}
	section := func(title, body string) {
		sb.WriteString("[" + title + "]\n")
		if strings.TrimSpace(body) == "" {
			body = "(geen)"
		}
		sb.WriteString(strings.TrimRight(body, "\n"))
		sb.WriteString("\n\n")
	}

	switch kind {
	case KindSummary:
		section("STATISTIEKEN", p.Stats)
		section("TAAK", "Geef een korte samenvatting van deze afvalwaterdata. "+
			"Benoem opvallende waarden en mogelijke procesproblemen.")
	case KindQuestion:
		section("STATISTIEKEN", p.Stats)
		section("VRAAG", p.Question)
		section("TAAK", "Beantwoord de vraag op basis van de statistieken hierboven.")
	case KindCorrelation:
		section("CORRELATIEMATRIX", p.Correlation)
		section("TAAK", "Leg uit welke correlaties procestechnisch relevant zijn en wat ze kunnen betekenen.")
	case KindColumnAdvice:
		section("KOLOM", p.ColumnStats)
		section("TAAK", fmt.Sprintf("Geef praktisch advies aan de operator over de parameter %q: "+
			"is het niveau en de spreiding normaal, en welke acties zijn zinvol?", p.Column))
	case KindAnomaly:
		k := p.BandWidth
		if k <= 0 {
			k = analysis.DefaultBandWidth
		}
		section(fmt.Sprintf("ANOMALIEËN (buiten gemiddelde ± %gσ)", k), strings.Join(p.Anomalies, "\n"))
		section("TAAK", "Wat kunnen mogelijke oorzaken zijn van deze afwijkende waarden, "+
			"en hoe kan de operator ze verifiëren?")
	default:
		section("TAAK", p.Question)
	}
	return system, strings.TrimRight(sb.String(), "\n") + "\n"
}
