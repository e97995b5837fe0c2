package planner

import (
	"encoding/json"
)

const scheduleToolName = "parseTodaysSchedule"

const plannerSystemPrompt = "you are an expert daily planner. you will be given a list of main tasks " +
	"and an estimated time to complete each task. You will also receive the total amount of hours to be " +
	"worked that day. Your job is to return a detailed plan of how to achieve those tasks by breaking " +
	"each task down into at least 3 subtasks each. MAKE SURE TO ALWAYS CREATE AT LEAST 3 SUBTASKS FOR " +
	"EACH MAIN TASK PROVIDED BY THE USER! YOU WILL BE REWARDED IF YOU DO."

// scheduleToolParams is the fixed JSON schema for the day-plan function call.
// The at-least-3-subtasks rule lives in the system prompt only; it is
// advisory and the model may violate it.
var scheduleToolParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"mainTasks": {
			"type": "array",
			"description": "Name of main tasks provided by user, ordered by priority",
			"items": {
				"type": "object",
				"properties": {
					"name": {
						"type": "string",
						"description": "Name of main task provided by user"
					},
					"priority": {
						"type": "string",
						"enum": ["low", "medium", "high"],
						"description": "task priority"
					}
				}
			}
		},
		"subtasks": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"description": {
						"type": "string",
						"description": "detailed breakdown and description of sub-task related to main task. e.g., \"Prepare your learning session by first reading through the documentation\""
					},
					"time": {
						"type": "number",
						"description": "time allocated for a given subtask in hours, e.g. 0.5"
					},
					"mainTaskName": {
						"type": "string",
						"description": "name of main task related to subtask"
					}
				}
			}
		}
	},
	"required": ["mainTasks", "subtasks"]
}`)
