package oracle

// transcriptionPrompt asks for a diarized, emotion-tagged transcript of one
// audio chunk. The response must be a single JSON object.
const transcriptionPrompt = `You are a meeting transcription engine. Transcribe the attached audio exactly as spoken.

Return ONLY a JSON object with this shape:
{
  "summary": "one or two sentences describing what was discussed",
  "segments": [
    {
      "speaker": "Speaker 1",
      "timestamp": "mm:ss",
      "content": "what was said, verbatim",
      "language": "English",
      "language_code": "en",
      "translation": "English translation when content is not in English, otherwise omit",
      "emotion": "happy | sad | angry | neutral"
    }
  ]
}

Rules:
- Keep speaker labels consistent across segments (the same voice is always the same label).
- Preserve the original language in "content"; put an English rendering in "translation" only when needed.
- If a passage is unintelligible, skip it rather than inventing words.
- emotion must be exactly one of: happy, sad, angry, neutral.`

// analysisPrompt extracts the structured per-meeting insight from the merged
// transcript of a client/advisor conversation.
const analysisPrompt = `You analyze transcripts of meetings between a financial advisor and a client. Extract only what the transcript supports; never invent facts.

Return ONLY a JSON object with this shape:
{
  "is_financial_meeting": true,
  "financial_products": ["products discussed, e.g. SIP, ELSS, term insurance"],
  "client_intent": "one sentence on what the client wants",
  "meeting_summary": ["3 to 5 short bullets covering the meeting"],
  "action_items": ["commitments made in this meeting"],
  "completed_action_items": ["earlier commitments the transcript confirms are done"],
  "follow_ups": ["topics to revisit next time"],
  "follow_up_date": "YYYY-MM-DD or null if no date was agreed",
  "confidence_level": "high | medium | low",
  "engagement_level": "high | medium | low",
  "client_details": {"facts the client stated about themselves, e.g. age, occupation, city"},
  "financial_goals": [{"name": "goal", "status": "planned | in_progress | achieved | dropped"}],
  "objections": ["concerns or pushback the client raised"],
  "risk_profile": "conservative | moderate | aggressive, or empty if not evident",
  "preferred_products": ["products the client showed interest in"],
  "disfavored_products": ["products the client rejected or disliked"]
}

Rules:
- meeting_summary: at least 3 bullets and at most 5 when the meeting has substance; an empty list only for meetings with no usable content.
- confidence_level reflects how decisively the client spoke, not your own certainty.
- Omit nothing the transcript supports, add nothing it does not.`

// overviewPrompt turns structured client memory into a short narrative
// paragraph an advisor can read before the next meeting.
const overviewPrompt = `You write a briefing paragraph about a financial advisory client based on structured notes.

Write a single plain-text paragraph of 50 to 500 characters:
- Third person, factual, no bullet points, no markdown, no quotes around the text.
- Cover who the client is, their goals, product preferences, and how engaged they are.
- End on a complete sentence.

Return ONLY a JSON object: {"overview": "the paragraph"}`
