package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paes-prep/backend/internal/models"
)

// templateBank is the one subject→template table. The composer's
// zero-content path and demo mode both read from it.
var templateBank = map[models.Subject][]models.Question{
	models.SubjectReading: {
		{
			ID:            "tpl-cl-1",
			Prompt:        "\"La biblioteca municipal amplió su horario hasta las 21:00 horas para que los estudiantes que trabajan de día puedan usar sus salas.\" Según el texto, ¿por qué se amplió el horario?",
			Options:       []string{"Para aumentar el número de libros", "Para que estudiantes que trabajan de día puedan asistir", "Porque las salas estaban vacías", "Para reducir costos de electricidad"},
			CorrectAnswer: "Para que estudiantes que trabajan de día puedan asistir",
			Explanation:   "El texto señala explícitamente que la ampliación busca que los estudiantes que trabajan de día puedan usar las salas.",
			Difficulty:    models.DifficultyBasic,
			Skill:         models.SkillTrackLocate,
			Subject:       models.SubjectReading,
		},
		{
			ID:            "tpl-cl-2",
			Prompt:        "\"Aunque la ciudad invirtió en ciclovías, el uso de la bicicleta creció menos de lo esperado: muchos vecinos aún consideran peligroso cruzar las avenidas principales.\" ¿Qué se infiere del texto?",
			Options:       []string{"Las ciclovías fueron innecesarias", "La percepción de inseguridad limita el uso de la bicicleta", "Los vecinos prefieren el automóvil por comodidad", "La inversión en ciclovías fue insuficiente en kilómetros"},
			CorrectAnswer: "La percepción de inseguridad limita el uso de la bicicleta",
			Explanation:   "El texto atribuye el bajo crecimiento a que los vecinos consideran peligroso cruzar las avenidas, es decir, a una percepción de inseguridad.",
			Difficulty:    models.DifficultyIntermediate,
			Skill:         models.SkillInterpretRelate,
			Subject:       models.SubjectReading,
		},
		{
			ID:            "tpl-cl-3",
			Prompt:        "Un columnista afirma: \"Todos los jóvenes prefieren informarse por redes sociales, como demuestra que mis tres sobrinos lo hacen.\" ¿Cuál es la principal debilidad de este argumento?",
			Options:       []string{"Usa un lenguaje demasiado técnico", "Generaliza a partir de una muestra muy pequeña", "No menciona qué redes sociales se usan", "Contradice datos oficiales citados en el texto"},
			CorrectAnswer: "Generaliza a partir de una muestra muy pequeña",
			Explanation:   "El autor extiende a todos los jóvenes lo observado en solo tres personas, lo que constituye una generalización apresurada.",
			Difficulty:    models.DifficultyAdvanced,
			Skill:         models.SkillEvaluateReflect,
			Subject:       models.SubjectReading,
		},
	},
	models.SubjectMath1: {
		{
			ID:            "tpl-m1-1",
			Prompt:        "Si 2x + 6 = 14, ¿cuál es el valor de x?",
			Options:       []string{"2", "4", "7", "10"},
			CorrectAnswer: "4",
			Explanation:   "Se resta 6 a ambos lados (2x = 8) y se divide por 2, obteniendo x = 4.",
			Difficulty:    models.DifficultyBasic,
			Skill:         models.SkillSolveProblems,
			Subject:       models.SubjectMath1,
		},
		{
			ID:            "tpl-m1-2",
			Prompt:        "Un plan de telefonía cobra $5.000 fijos más $200 por cada GB adicional. ¿Qué expresión representa el cobro total C por g GB adicionales?",
			Options:       []string{"C = 5.000g + 200", "C = 5.200g", "C = 5.000 + 200g", "C = 200(5.000 + g)"},
			CorrectAnswer: "C = 5.000 + 200g",
			Explanation:   "El cargo fijo se suma una sola vez y el costo variable es 200 por cada GB, por lo que C = 5.000 + 200g.",
			Difficulty:    models.DifficultyIntermediate,
			Skill:         models.SkillModel,
			Subject:       models.SubjectMath1,
		},
		{
			ID:            "tpl-m1-3",
			Prompt:        "En una bolsa hay 3 bolitas rojas y 5 azules. Si se extrae una al azar, ¿cuál es la probabilidad de que sea roja?",
			Options:       []string{"3/5", "3/8", "5/8", "1/3"},
			CorrectAnswer: "3/8",
			Explanation:   "Hay 3 casos favorables entre 8 bolitas en total, por lo que la probabilidad es 3/8.",
			Difficulty:    models.DifficultyBasic,
			Skill:         models.SkillRepresent,
			Subject:       models.SubjectMath1,
		},
	},
	models.SubjectMath2: {
		{
			ID:            "tpl-m2-1",
			Prompt:        "¿Cuál es el valor de log₂(32)?",
			Options:       []string{"4", "5", "6", "16"},
			CorrectAnswer: "5",
			Explanation:   "Como 2⁵ = 32, el logaritmo en base 2 de 32 es 5.",
			Difficulty:    models.DifficultyBasic,
			Skill:         models.SkillSolveProblems,
			Subject:       models.SubjectMath2,
		},
		{
			ID:            "tpl-m2-2",
			Prompt:        "Se lanzan dos dados equilibrados. ¿Cuál es la probabilidad de que la suma sea 7?",
			Options:       []string{"1/12", "1/9", "1/6", "7/36"},
			CorrectAnswer: "1/6",
			Explanation:   "Hay 6 pares que suman 7 entre 36 resultados posibles, y 6/36 = 1/6.",
			Difficulty:    models.DifficultyIntermediate,
			Skill:         models.SkillModel,
			Subject:       models.SubjectMath2,
		},
	},
	models.SubjectScience: {
		{
			ID:            "tpl-cien-1",
			Prompt:        "En un experimento, plantas iguales se ubican con luz y sin luz, manteniendo agua y temperatura constantes. ¿Cuál es la variable independiente?",
			Options:       []string{"La cantidad de agua", "La temperatura", "La presencia de luz", "El crecimiento de las plantas"},
			CorrectAnswer: "La presencia de luz",
			Explanation:   "La variable que el investigador manipula es la luz; el crecimiento es la variable dependiente y el resto son controladas.",
			Difficulty:    models.DifficultyBasic,
			Skill:         models.SkillProcessAnalyze,
			Subject:       models.SubjectScience,
		},
		{
			ID:            "tpl-cien-2",
			Prompt:        "Un cuerpo de 2 kg acelera a 3 m/s² sobre una superficie sin roce. ¿Cuál es la fuerza neta que actúa sobre él?",
			Options:       []string{"1,5 N", "5 N", "6 N", "9 N"},
			CorrectAnswer: "6 N",
			Explanation:   "Según la segunda ley de Newton, F = m · a = 2 kg · 3 m/s² = 6 N.",
			Difficulty:    models.DifficultyIntermediate,
			Skill:         models.SkillApplyPrinciples,
			Subject:       models.SubjectScience,
		},
	},
	models.SubjectHistory: {
		{
			ID:            "tpl-hist-1",
			Prompt:        "Un historiador compara una carta personal de un soldado con un informe oficial del ejército sobre la misma batalla. ¿Qué tipo de fuente es la carta?",
			Options:       []string{"Fuente secundaria", "Fuente primaria", "Fuente estadística", "Fuente historiográfica"},
			CorrectAnswer: "Fuente primaria",
			Explanation:   "La carta fue producida por un testigo directo en la época de los hechos, por lo que es una fuente primaria.",
			Difficulty:    models.DifficultyBasic,
			Skill:         models.SkillAnalyzeSources,
			Subject:       models.SubjectHistory,
		},
		{
			ID:            "tpl-hist-2",
			Prompt:        "Dos textos escolares describen el mismo proceso de independencia con énfasis distintos: uno destaca a los líderes militares y otro la participación popular. ¿Qué explica mejor esta diferencia?",
			Options:       []string{"Uno de los textos contiene datos falsos", "Los autores usan perspectivas historiográficas distintas", "El proceso ocurrió dos veces", "Solo uno de los textos usa fuentes"},
			CorrectAnswer: "Los autores usan perspectivas historiográficas distintas",
			Explanation:   "Distintos enfoques interpretativos seleccionan y jerarquizan los hechos de manera diferente sin que ello implique falsedad.",
			Difficulty:    models.DifficultyAdvanced,
			Skill:         models.SkillCriticalThinking,
			Subject:       models.SubjectHistory,
		},
	},
}

func init() {
	for _, questions := range templateBank {
		for i := range questions {
			questions[i].Provenance = models.Provenance{Source: models.SourceFallbackTemplate}
		}
	}
}

// TemplateQuestions returns copies of the fixed templates for a subject.
func TemplateQuestions(subject models.Subject) []models.Question {
	src := templateBank[subject]
	out := make([]models.Question, len(src))
	for i, q := range src {
		out[i] = q.Clone()
	}
	return out
}

// HasTemplates reports whether a subject has fallback content.
func HasTemplates(subject models.Subject) bool {
	return len(templateBank[subject]) > 0
}

// FallbackQuestion synthesizes a question for one slot. Each call gets a
// fresh id so repeated templates never collide inside one diagnostic.
// Templates matching the requested skill are preferred.
func FallbackQuestion(subject models.Subject, skill models.Skill, slot int) (models.Question, bool) {
	src := templateBank[subject]
	if len(src) == 0 {
		return models.Question{}, false
	}

	var matching []models.Question
	for _, q := range src {
		if q.Skill == skill {
			matching = append(matching, q)
		}
	}
	if len(matching) == 0 {
		matching = src
	}
	if slot < 0 {
		slot = -slot
	}

	tpl := matching[slot%len(matching)]
	q := tpl.Clone()
	origin := tpl.ID
	q.ID = uuid.NewString()
	q.Provenance = models.Provenance{Source: models.SourceFallbackTemplate, OriginalID: &origin}
	return q, true
}

// demoSubjects are the subjects shipped in demo mode.
var demoSubjects = []models.Subject{models.SubjectReading, models.SubjectMath1}

// DemoIDPrefix marks diagnostics served from DemoDiagnostics. They are never
// stored.
const DemoIDPrefix = "demo-"

// DemoDiagnostic resolves a single demo diagnostic by id.
func DemoDiagnostic(id, userID string, now time.Time) (models.ComposedDiagnostic, bool) {
	if !strings.HasPrefix(id, DemoIDPrefix) {
		return models.ComposedDiagnostic{}, false
	}
	for _, d := range DemoDiagnostics(userID, now) {
		if d.ID == id {
			return d, true
		}
	}
	return models.ComposedDiagnostic{}, false
}

// DemoDiagnostics returns the static demo-mode set. Content and ids are
// fixed; only the owning user and timestamp vary.
func DemoDiagnostics(userID string, now time.Time) []models.ComposedDiagnostic {
	out := make([]models.ComposedDiagnostic, 0, len(demoSubjects))
	for _, subject := range demoSubjects {
		questions := TemplateQuestions(subject)
		out = append(out, models.ComposedDiagnostic{
			ID:          DemoIDPrefix + subject.Code(),
			UserID:      userID,
			Title:       fmt.Sprintf("Diagnóstico de demostración: %s", subject.DisplayName()),
			Description: "Contenido de ejemplo disponible sin conexión al banco de preguntas.",
			Subject:     subject,
			Questions:   questions,
			Metadata: models.DiagnosticMetadata{
				FallbackCount: len(questions),
				QualityTier:   models.QualityBasic,
			},
			CreatedAt: now.UTC(),
		})
	}
	return out
}
