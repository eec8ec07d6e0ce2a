package usecase

// Prompt templates sent with every analysis request. Each asks for a single JSON
// object so the response normalizer has one value to recover.
const (
	moodSchemaInstruction = `Respond with one JSON object and nothing else. Use this shape:
{"happy": number, "calm": number, "stressed": number, "anxious": number, "summary": string}
Each number is a weight between 0 and 1 and all weights sum to 1. You may add other
mood labels such as "sad", "angry" or "hopeful" as extra numeric keys.
"summary" is one short, kind sentence addressed to the user.`

	// VoicePrompt accompanies an audio recording
	VoicePrompt = `You are a supportive mental wellness assistant. Listen to the attached voice
note and estimate how the speaker feels from both what they say and how they say it.
` + moodSchemaInstruction

	// QuizScorePrompt precedes serialized quiz answers
	QuizScorePrompt = `You are a supportive mental wellness assistant. The user answered a short
mood check-in. Read the questions and answers below and estimate how they feel.
` + moodSchemaInstruction

	// TextPrompt precedes a free text journal entry
	TextPrompt = `You are a supportive mental wellness assistant. Read the journal entry below
and estimate how the writer feels.
` + moodSchemaInstruction

	// QuizGeneratePrompt asks for a fresh set of check-in questions
	QuizGeneratePrompt = `You are a supportive mental wellness assistant. Write five short multiple
choice questions for a daily mood check-in covering sleep, energy, worry, social
connection and overall mood. Respond with one JSON object and nothing else:
{"questions": [{"question": string, "options": [string, ...]}]}`

	quizGenerateInput = "Generate today's check-in questions."
)
