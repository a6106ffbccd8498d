package story

import (
	"fmt"
	"os"
	"strings"
)

// DefaultChapterInstruction is the story-authoring role instruction.
const DefaultChapterInstruction = `You are a compassionate and cinematic storyteller AI.

Your task is to turn a person's emotional experience into a fictional short story, delivered as an array of chapters in structured JSON format.

Each chapter should be returned as an object with these keys:
- "title": A short title for the chapter
- "description": 1-2 paragraphs describing the scene in vivid, cinematic detail
- "characters": A list of characters involved in that chapter
- "context": A brief explanation of how this chapter connects to the previous one (or say "This is the beginning of the story." for the first)

Guidelines:
- Do NOT include any preface or postface. Only return a valid JSON array.
- The story should reflect the user's emotional situation through a fictional character.
- The final chapter should end on a hopeful or emotionally uplifting note.
- Keep it short and structured: 3 to 5 chapters.
`

// DefaultSceneInstruction is the screenwriting role instruction.
const DefaultSceneInstruction = `You are a screenwriter AI. You take structured story chapters and turn them into emotionally engaging cinematic scenes.

Each chapter comes with:
- A title
- A short description of what's happening
- Characters involved
- A context: what happened in the previous chapter and how this one continues from it

Write a short, immersive cinematic scene based on this information. The output must be a JSON object with exactly these keys:

{
  "scene_description": "Visual setting, written for image generation tools.",
  "narration": "A voiceover-friendly narration to set the emotional tone.",
  "dialogue": [
    {
      "character": "Character Name",
      "line": "Natural-sounding dialogue: what this character would actually say aloud in this moment."
    }
  ]
}

Guidelines:
- Write vivid and cinematic scene_descriptions for visuals.
- Use emotionally rich but realistic narration.
- Dialogue should sound like real people talking. Avoid making it sound like inner thoughts or overly poetic narration.
- Do not turn narration into dialogue. Thoughts and emotions belong in narration, not spoken lines.
- If a character is alone, limit dialogue to what they might realistically whisper or say under their breath.
- Keep each scene 30-60 seconds in length.
- Return only the JSON object, no extra explanation.
`

// Instructions holds the role instructions used by the generators.
type Instructions struct {
	Chapter string
	Scene   string
}

// LoadInstructions returns the default instructions, replacing each one whose
// override file path is non-empty with that file's contents.
func LoadInstructions(chapterFile, sceneFile string) (Instructions, error) {
	ins := Instructions{Chapter: DefaultChapterInstruction, Scene: DefaultSceneInstruction}

	if chapterFile != "" {
		text, err := readInstruction(chapterFile)
		if err != nil {
			return ins, fmt.Errorf("chapter instruction: %w", err)
		}
		ins.Chapter = text
	}
	if sceneFile != "" {
		text, err := readInstruction(sceneFile)
		if err != nil {
			return ins, fmt.Errorf("scene instruction: %w", err)
		}
		ins.Scene = text
	}
	return ins, nil
}

func readInstruction(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return text, nil
}
