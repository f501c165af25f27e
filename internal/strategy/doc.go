// Package strategy: ядро сигналов: SMA/RSI, классификация тренда и уровни сделки.
// Все функции чистые и безопасны для конкурентного вызова.
package strategy
