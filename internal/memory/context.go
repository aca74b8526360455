package memory

import "context"

// GetConversationContext loads all messages (index order) and, when
// includeFiles is set, the session's relevant files (most-recently-accessed
// first), counts their tokens accurately, and prunes to maxTokens when the
// total exceeds it. maxTokens<0 means no limit (the caller omitted it);
// maxTokens==0 is a real, enforced budget of zero and returns empty
// messages and empty files, pruned.
func (s *Service) GetConversationContext(ctx context.Context, sessionID string, maxTokens int, includeFiles bool, model string) (*ConversationContext, error) {
	messages, err := s.listMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var files []File
	if includeFiles {
		files, err = s.listRelevantFiles(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	msgTokens := make([]int, len(messages))
	approximate := false
	totalTokens := 0
	for i, m := range messages {
		r := s.tokens.CountMessage(model, m.Role, "", m.Content)
		msgTokens[i] = r.Tokens
		approximate = approximate || r.Approximate
		totalTokens += r.Tokens
	}

	fileTokens := make([]int, len(files))
	for i, f := range files {
		r := s.tokens.Count(model, f.FileContent)
		fileTokens[i] = r.Tokens
		approximate = approximate || r.Approximate
		totalTokens += r.Tokens
	}

	if maxTokens < 0 || totalTokens <= maxTokens {
		return &ConversationContext{
			Messages:    messages,
			Files:       files,
			TotalTokens: totalTokens,
			Pruned:      false,
			Approximate: approximate,
		}, nil
	}

	messageBudget := int(float64(maxTokens) * messageTokenRatio)
	fileBudget := int(float64(maxTokens) * fileTokenRatio)

	prunedMessages, msgUsed := pruneNewestFirst(messages, msgTokens, messageBudget)

	// files arrive most-recently-accessed first, so admit from the front
	var prunedFiles []File
	fileUsed := 0
	if fileBudget > 0 {
		for i, f := range files {
			if fileUsed+fileTokens[i] > fileBudget {
				break
			}
			fileUsed += fileTokens[i]
			prunedFiles = append(prunedFiles, f)
		}
	}

	return &ConversationContext{
		Messages:    prunedMessages,
		Files:       prunedFiles,
		TotalTokens: msgUsed + fileUsed,
		Pruned:      true,
		Approximate: approximate,
	}, nil
}

// pruneNewestFirst walks items from newest (last) to oldest, admitting each
// whose token cost fits the remaining budget, stopping at the first one
// that doesn't (no skip-forward), then returns the admitted subset restored
// to its original (chronological) order.
func pruneNewestFirst[T any](items []T, tokens []int, budget int) ([]T, int) {
	if budget <= 0 || len(items) == 0 {
		return nil, 0
	}

	admitted := make([]bool, len(items))
	used := 0
	for i := len(items) - 1; i >= 0; i-- {
		if used+tokens[i] > budget {
			break
		}
		used += tokens[i]
		admitted[i] = true
	}

	result := make([]T, 0, len(items))
	for i, item := range items {
		if admitted[i] {
			result = append(result, item)
		}
	}
	return result, used
}
