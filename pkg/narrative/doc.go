/*
Package narrative encodes the four-state loop Steve is stuck in.

Classifying what the user said (vague, a concrete suggestion, encouragement) is left to the
language model. What this package enforces is structure: a proposed next state must be one of
the four legal values, the step from the previous state must be a transition the loop allows,
and the Default Stasis loop counter must follow the stalemate-breaker rule.

	Default Stasis --(concrete suggestion)--> Considering --(elaboration)--> Elaborating Hope
	      ^                                                                     |
	      +------------------ The Collapse <----------(after 1-2 turns)---------+
*/
package narrative
