package reason

// understandPrompt asks for a task classification.
const understandPrompt = `Classify this task for delegation.

Title: %s
Priority: %s

Description:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "primary_intent": "One sentence stating what the task is asking for",
  "complexity": "Simple|Moderate|Complex",
  "required_expertise": ["discipline 1", "discipline 2"]
}`

// planPrompt asks for an ordered project plan.
const planPrompt = `Produce a delegation plan for this task.

Title: %s
Intent: %s
Complexity: %s
Required expertise: %s

Description:
%s

Available agents (id: specialization):
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "overview": "One paragraph plan summary",
  "work_packages": [
    {
      "id": "wp-1",
      "name": "Short package name",
      "description": "What this package covers",
      "assigned_to": "agent id from the list above",
      "elements": ["concrete work item 1", "concrete work item 2"],
      "dependencies": []
    }
  ],
  "milestones": ["notable checkpoint"],
  "timeline": "free-text schedule estimate"
}

Guidelines:
- assigned_to MUST be one of the listed agent ids
- elements are the concrete items the agent will work through, in order
- keep packages independent; add dependencies only when strictly needed`

// decomposePrompt asks for work-bot specs for one assignment.
const decomposePrompt = `Break these assigned work items into executable work-bot specs for agent %s (%s).

Work items:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "tasks": [
    {
      "description": "What this bot should do",
      "bot_type": "research|code-generation|testing|documentation|deployment|analysis|general",
      "expected_output": "What a successful run produces",
      "dependencies": []
    }
  ],
  "strategy": "One sentence on how the split was chosen"
}

Guidelines:
- one bot per cohesive unit of work; do not pad the list
- bot_type must be one of the listed values`

// executePrompt asks for one simulated unit of work.
const executePrompt = `You are %s, a %s specialist. Carry out this unit of work and report the result.

Work: %s
Expected output: %s

Reply with the work product itself, concise and concrete. Do not add preambles.`

// respondPrompt asks for a conversational status reply.
const respondPrompt = `You coordinate a fleet of work agents. A user is asking about one of their tasks.

Current status snapshot:
%s

User message:
%s

Reply conversationally in a few sentences, grounded in the snapshot above.`
