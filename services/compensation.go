package services

import (
	"context"
	"errors"

	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type undoStep struct {
	name string
	undo func(ctx context.Context) error
}

// compensation records undo steps for writes applied inside a unit of work. Inside a Mongo
// transaction the undo writes are discarded with the abort; on a standalone server they are what
// restores the previous state.
type compensation struct {
	steps []undoStep
}

func (c *compensation) add(name string, undo func(ctx context.Context) error) {
	c.steps = append(c.steps, undoStep{name: name, undo: undo})
}

// run undoes the recorded steps newest first. Failures are logged and do not stop the remaining steps.
func (c *compensation) run(ctx context.Context, logger *zap.Logger) {
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.undo(ctx); err != nil {
			logger.Error("compensation step failed", zap.String("step", step.name), zap.Error(err))
		}
	}
	c.steps = nil
}

// reserveStock decrements stock and records the matching restore.
func reserveStock(ctx context.Context, products repository.ProductRepo, comp *compensation, id primitive.ObjectID, qty int) error {
	if err := products.DecrementStock(ctx, id, qty); err != nil {
		return err
	}
	comp.add("restore stock "+id.Hex(), func(ctx context.Context) error {
		return products.RestoreStock(ctx, id, qty)
	})
	return nil
}

// releaseStock restores stock and records the matching decrement.
func releaseStock(ctx context.Context, products repository.ProductRepo, comp *compensation, id primitive.ObjectID, qty int) error {
	err := products.RestoreStock(ctx, id, qty)
	if errors.Is(err, repository.ErrNotFound) {
		// product deleted since the order was placed; nothing to give back
		return nil
	}
	if err != nil {
		return err
	}
	comp.add("decrement stock "+id.Hex(), func(ctx context.Context) error {
		return products.DecrementStock(ctx, id, qty)
	})
	return nil
}
