package vision

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/extract_lines.txt
var extractLinesPrompt string

//go:embed prompts/detect_face.txt
var detectFacePrompt string

// maxRetries bounds how often a model is asked to fix invalid JSON.
const maxRetries = 3

type linesResponse struct {
	Lines []string `json:"lines"`
}

type faceResponse struct {
	Face *Box `json:"face"`
}

// parseLines decodes a lines response, dropping blank lines.
func parseLines(content string) ([]string, error) {
	var resp linesResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(resp.Lines))
	for _, l := range resp.Lines {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// parseFace decodes a face response. A box outside the image is an error so
// the model gets a chance to correct it.
func parseFace(content string) (*Box, error) {
	var resp faceResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, err
	}
	if resp.Face != nil && !resp.Face.Valid() {
		return nil, fmt.Errorf("face box %+v is not within 0..1", *resp.Face)
	}
	return resp.Face, nil
}

// retryMessage is sent back to the model after an unparsable answer.
func retryMessage(err error) string {
	return fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Respond with the JSON object only.", err)
}
