package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Прогон
	AttrRunID     = "lottery.run_id"
	AttrSeed      = "lottery.seed"
	AttrInputHash = "lottery.input_hash"
	AttrCacheHit  = "lottery.cache_hit"

	// Вход
	AttrPersons          = "input.persons"
	AttrCategories       = "input.categories"
	AttrNonParticipating = "input.non_participating"

	// Сеть
	AttrNetworkNodes = "network.nodes"
	AttrNetworkArcs  = "network.arcs"
	AttrExpectedFlow = "network.expected_flow"

	// Решатель
	AttrAugmentations = "solver.augmentations"
	AttrPasses        = "solver.passes"
	AttrTotalCost     = "solver.total_cost"
	AttrVerify        = "solver.verify"

	// Результат
	AttrPlaced    = "result.placed"
	AttrWithdrawn = "result.withdrawn"

	// Выгрузка
	AttrExportFormat = "export.format"
	AttrExportPath   = "export.path"
)

// InputAttributes возвращает атрибуты входных данных
func InputAttributes(persons, categories, nonParticipating int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrPersons, persons),
		attribute.Int(AttrCategories, categories),
		attribute.Int(AttrNonParticipating, nonParticipating),
	}
}

// NetworkAttributes возвращает атрибуты построенной сети
func NetworkAttributes(nodes, arcs int, expectedFlow int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkNodes, nodes),
		attribute.Int(AttrNetworkArcs, arcs),
		attribute.Int64(AttrExpectedFlow, expectedFlow),
	}
}

// SolverAttributes возвращает атрибуты решения
func SolverAttributes(augmentations, passes int, totalCost int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrAugmentations, augmentations),
		attribute.Int(AttrPasses, passes),
		attribute.Int64(AttrTotalCost, totalCost),
	}
}

// ResultAttributes возвращает атрибуты распределения
func ResultAttributes(placed, withdrawn int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrPlaced, placed),
		attribute.Int(AttrWithdrawn, withdrawn),
	}
}
