package processors

import "encoding/json"

// meetingSummaryPrompt is the fixed extraction instruction sent with every
// transcript. The schema constraint below enforces the output shape; the
// prompt steers content quality and null usage.
const meetingSummaryPrompt = `You are a meeting summarization assistant. Your task is to analyze a meeting transcript and extract structured information.

## Instructions

1. **Title**: Generate a concise, descriptive title for the meeting based on its main topic(s).

2. **Summary**: Write an executive summary (2-4 sentences) capturing the meeting's purpose, main outcomes, and overall context.

3. **Date and Duration**: Extract the meeting date and duration if they are stated in the transcript; otherwise use null.

4. **Participants**: Extract participant names and their roles if identifiable.
   - Only include participants whose names are clearly stated
   - Infer roles from context (e.g., "meeting lead", "presenter", "attendee"); use null when no role is identifiable
   - If this is a monologue or single speaker, you may return null for participants

5. **Key Points**: List the main discussion topics and important points raised.
   - Focus on substantive points, not procedural ones
   - Return null if no clear key points can be extracted

6. **Decisions**: Extract any decisions made during the meeting.
   - Include the decision statement and the context/reasoning behind it
   - Return null if no explicit decisions were made

7. **Action Items**: Extract tasks assigned during the meeting.
   - Include the task description, assignee (if mentioned), and deadline (if mentioned)
   - Return null if no action items were assigned

## Important Notes
- Be accurate and only include information explicitly stated or clearly implied in the transcript
- Use null for optional fields when the information is not available
- Every key in the schema must appear in your output; represent unknown values as null, never by omitting the key
- Do not fabricate information that isn't in the transcript
- Keep the summary professional and objective`

// meetingSummarySchema is the strict JSON schema sent as the response format
// constraint. It mirrors core.ValidateSummaryPayload: closed object, all keys
// required, nullability encoded per field.
var meetingSummarySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {
      "type": "string",
      "description": "Title of the meeting"
    },
    "summary": {
      "type": "string",
      "description": "Executive summary of the meeting"
    },
    "date": {
      "type": ["string", "null"],
      "description": "Meeting date if stated in the transcript"
    },
    "duration": {
      "type": ["string", "null"],
      "description": "Meeting duration if stated in the transcript"
    },
    "participants": {
      "type": ["array", "null"],
      "description": "People who attended the meeting",
      "items": {
        "type": "object",
        "properties": {
          "name": {
            "type": "string",
            "description": "Participant's name"
          },
          "role": {
            "type": ["string", "null"],
            "description": "Role of the participant in the meeting"
          }
        },
        "required": ["name", "role"],
        "additionalProperties": false
      }
    },
    "key_points": {
      "type": ["array", "null"],
      "description": "Key points discussed in the meeting",
      "items": {
        "type": "string"
      }
    },
    "decisions": {
      "type": ["array", "null"],
      "description": "Decisions made during the meeting",
      "items": {
        "type": "object",
        "properties": {
          "description": {
            "type": "string",
            "description": "Decision statement"
          },
          "context": {
            "type": ["string", "null"],
            "description": "Context or reasoning for the decision"
          }
        },
        "required": ["description", "context"],
        "additionalProperties": false
      }
    },
    "action_items": {
      "type": ["array", "null"],
      "description": "Action items from the meeting",
      "items": {
        "type": "object",
        "properties": {
          "task": {
            "type": "string",
            "description": "Description of the action item"
          },
          "assignee": {
            "type": ["string", "null"],
            "description": "Person assigned to the action item"
          },
          "deadline": {
            "type": ["string", "null"],
            "description": "Deadline for the action item"
          }
        },
        "required": ["task", "assignee", "deadline"],
        "additionalProperties": false
      }
    }
  },
  "required": ["title", "summary", "date", "duration", "participants", "key_points", "decisions", "action_items"],
  "additionalProperties": false
}`)
