package migrate

import (
	"fmt"

	"vault/domain"
)

// ── Transform chain ────────────────────────────────────────
// Executes the planner's tag sequence as a fold over user-supplied
// data-shape transforms, carrying the dataset forward one version at a
// time. The chain performs no I/O and no schema validation itself.

// RunChain morphs dataset from the shape of sourceTag to the shape of
// targetTag. sourceTag == "" means the baseline shape; targetTag == ""
// defaults to the latest declared tag.
func RunChain(versions []domain.VersionDef, transforms map[string]domain.TransformFn,
	dataset domain.Dataset, sourceTag, targetTag string) (domain.Dataset, error) {

	if len(versions) == 0 {
		return dataset, nil
	}
	if targetTag == "" {
		targetTag = versions[len(versions)-1].Tag
	}
	// The baseline version has no transform; an unspecified source
	// means the dataset is already in baseline shape.
	if sourceTag == "" {
		sourceTag = versions[0].Tag
	}

	plan, err := Plan(versions, sourceTag, targetTag)
	if err != nil {
		return nil, err
	}

	acc := dataset
	fromTag := sourceTag

	for i, tag := range plan {
		fn, ok := transforms[tag]
		if !ok || fn == nil {
			return nil, fmt.Errorf("tag %q: %w", tag, domain.ErrMissingTransform)
		}
		step := domain.StepContext{
			FromTag:   fromTag,
			ToTag:     tag,
			SourceTag: sourceTag,
			TargetTag: targetTag,
			Index:     i,
			Total:     len(plan),
			IsLast:    i == len(plan)-1,
			Plan:      plan,
			Versions:  versions,
		}
		next, err := fn(acc, step)
		if err != nil {
			return nil, fmt.Errorf("transform to %q: %w", tag, err)
		}
		acc = next
		fromTag = tag
	}
	return acc, nil
}

// TransformAndValidate composes the chain with a validator: run the
// chain, then check the result, surfacing every failing path in one
// aggregated error.
func TransformAndValidate(versions []domain.VersionDef, transforms map[string]domain.TransformFn,
	v domain.Validator, dataset domain.Dataset, sourceTag, targetTag string) (domain.Dataset, error) {

	out, err := RunChain(versions, transforms, dataset, sourceTag, targetTag)
	if err != nil {
		return nil, err
	}
	if v != nil {
		if issues := v.Validate(out); len(issues) > 0 {
			return nil, &domain.ValidationError{Issues: issues}
		}
	}
	return out, nil
}
