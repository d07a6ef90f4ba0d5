package evidence

// ExtractionPrompt instructs the model to pull discrete evidence units out of
// a diarized transcript. The speaker field must echo the transcript's label
// verbatim so attribution can resolve it.
const ExtractionPrompt = `You are a qualitative research assistant. Extract discrete evidence units from the interview transcript below.

An evidence unit is a single self-contained claim, pain point, need, or notable quote from one speaker.

Return JSON only, matching this schema exactly:
{
  "units": [
    {
      "speaker": "<speaker label exactly as it appears in the transcript>",
      "kind": "<one of: pain, need, quote, behavior, context>",
      "verbatim": "<the exact words from the transcript>",
      "summary": "<one sentence paraphrase>"
    }
  ]
}

Rules:
- Copy the speaker label character-for-character from the transcript.
- Never merge statements from different speakers into one unit.
- Omit interviewer questions unless they contain factual claims.
- Return {"units": []} if the transcript contains no usable evidence.`
