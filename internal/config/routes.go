package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/lingorelay/internal/bridge"
)

var (
	// ErrNoDestination means routes were configured without the forum group
	// they are supposed to post into.
	ErrNoDestination = errors.New("routes configured but dest_group_id is missing")
	// ErrNoRoutes means no usable route survived parsing; the service would
	// sit idle forever, so startup aborts.
	ErrNoRoutes = errors.New("no usable routes configured")
)

// ResolveRoutes normalizes either configuration shape into a route table.
// Multi-channel triples win when present; otherwise the legacy single
// source/dest pair is used, with @username locators resolved through the
// messaging network. Malformed triples are skipped with a warning; ending up
// with zero routes is fatal.
func ResolveRoutes(ctx context.Context, rc RoutingConfig, resolver bridge.LocatorResolver) (*bridge.RouteTable, error) {
	if len(rc.Routes) > 0 {
		return resolveMulti(rc)
	}
	return resolveLegacy(ctx, rc, resolver)
}

func resolveMulti(rc RoutingConfig) (*bridge.RouteTable, error) {
	if rc.DestGroupID == 0 {
		return nil, ErrNoDestination
	}

	var routes []bridge.Route
	for _, spec := range rc.Routes {
		route, err := parseRouteSpec(spec, rc.DestGroupID)
		if err != nil {
			slog.Warn("skipping malformed route", "route", spec, "error", err)
			continue
		}
		routes = append(routes, route)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	return bridge.NewRouteTable(routes), nil
}

// parseRouteSpec parses a "sourceID:topicID:promptKey" triple. All three
// fields are required and non-empty.
func parseRouteSpec(spec string, destGroupID int64) (bridge.Route, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) != 3 {
		return bridge.Route{}, fmt.Errorf("want sourceID:topicID:promptKey, got %d fields", len(parts))
	}

	sourceID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || sourceID == 0 {
		return bridge.Route{}, fmt.Errorf("bad source ID %q", parts[0])
	}
	topicID, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || topicID < 0 {
		return bridge.Route{}, fmt.Errorf("bad topic ID %q", parts[1])
	}
	promptKey := strings.TrimSpace(parts[2])
	if promptKey == "" {
		return bridge.Route{}, fmt.Errorf("empty prompt key")
	}

	return bridge.Route{
		SourceID:  sourceID,
		Dest:      bridge.Destination{ChatID: destGroupID, TopicID: topicID},
		PromptKey: promptKey,
	}, nil
}

func resolveLegacy(ctx context.Context, rc RoutingConfig, resolver bridge.LocatorResolver) (*bridge.RouteTable, error) {
	if rc.Source == "" || rc.Dest == "" {
		return nil, ErrNoRoutes
	}

	sourceID, err := resolveChatRef(ctx, rc.Source, resolver)
	if err != nil {
		return nil, fmt.Errorf("resolve source %q: %w", rc.Source, err)
	}
	destID, err := resolveChatRef(ctx, rc.Dest, resolver)
	if err != nil {
		return nil, fmt.Errorf("resolve dest %q: %w", rc.Dest, err)
	}

	return bridge.NewRouteTable([]bridge.Route{{
		SourceID: sourceID,
		Dest:     bridge.Destination{ChatID: destID},
	}}), nil
}

// resolveChatRef accepts a numeric chat ID verbatim and resolves anything
// else as a username locator.
func resolveChatRef(ctx context.Context, ref string, resolver bridge.LocatorResolver) (int64, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}
	if resolver == nil {
		return 0, fmt.Errorf("locator %q needs resolution but no resolver is available", ref)
	}
	if !strings.HasPrefix(ref, "@") {
		ref = "@" + ref
	}
	id, err := resolver.ResolveLocator(ctx, ref)
	if err != nil {
		return 0, err
	}
	slog.Info("resolved chat locator", "locator", ref, "chat_id", id)
	return id, nil
}
